package eval

// State is the lifecycle position of a Context.
type State uint8

const (
	StateInit State = iota
	StateEnvelope
	StatePayload
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateEnvelope:
		return "envelope"
	case StatePayload:
		return "payload"
	case StateDone:
		return "done"
	default:
		return "invalid"
	}
}
