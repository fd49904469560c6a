package runtime

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/drblury/protomatch/internal/filter/predicate"
	idspkg "github.com/drblury/protomatch/internal/ids"
	"github.com/drblury/protomatch/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/protomatch/internal/runtime/metadata"
)

var now = time.Now

// Notification is the payload published for every filter an event matched.
type Notification struct {
	ID            string    `json:"id"`
	FilterID      string    `json:"filter_id"`
	EntityType    string    `json:"entity_type"`
	SourceUUID    string    `json:"source_uuid"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Deliveries    int       `json:"deliveries"`
	MatchedAt     time.Time `json:"matched_at"`
}

func newNotification(source *message.Message, filterID string, match predicate.Match) Notification {
	at := now().UTC()
	return Notification{
		ID:            idspkg.At(at),
		FilterID:      filterID,
		EntityType:    match.EntityType,
		SourceUUID:    source.UUID,
		CorrelationID: middleware.MessageCorrelationID(source),
		Deliveries:    match.Deliveries,
		MatchedAt:     at,
	}
}

// message encodes n as a Watermill message whose UUID is the notification id.
func (n Notification) message(handler string, source *message.Message) (*message.Message, error) {
	payload, err := jsoncodec.Marshal(n)
	if err != nil {
		return nil, err
	}
	msg := message.NewMessage(n.ID, payload)
	msg.Metadata = metadatapkg.Notification(source, handler, n.FilterID, n.EntityType)
	return msg, nil
}

// DecodeNotification parses a published notification payload.
func DecodeNotification(payload []byte) (Notification, error) {
	var n Notification
	if err := jsoncodec.UnmarshalStrict(payload, &n); err != nil {
		return Notification{}, err
	}
	return n, nil
}
