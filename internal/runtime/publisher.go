package runtime

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/protomatch/internal/filter/schema"
	idspkg "github.com/drblury/protomatch/internal/ids"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
	metadatapkg "github.com/drblury/protomatch/internal/runtime/metadata"
)

// NewEventMessage encodes event in its envelope, typed by the event's full
// message name, and wraps it in a Watermill message with a ULID id.
func NewEventMessage(event proto.Message, md metadatapkg.Metadata) (*message.Message, error) {
	if event == nil {
		return nil, errspkg.ErrEventRequired
	}

	payload, err := proto.MarshalOptions{Deterministic: true}.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("protomatch: marshal event: %w", err)
	}
	typeName := string(event.ProtoReflect().Descriptor().FullName())

	msg := message.NewMessage(idspkg.New(), schema.Wrap(typeName, payload))
	for k, v := range md {
		msg.Metadata.Set(k, v)
	}
	msg.Metadata.Set(metadatapkg.KeyEntityType, typeName)
	return msg, nil
}

// PublishEvent envelopes event and publishes it to topic.
func PublishEvent(ctx context.Context, publisher message.Publisher, topic string, event proto.Message, md metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrTopicRequired
	}

	msg, err := NewEventMessage(event, md)
	if err != nil {
		return err
	}
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// PublishEvent publishes event through the service transport.
func (s *Service) PublishEvent(ctx context.Context, topic string, event proto.Message, md metadatapkg.Metadata) error {
	if s == nil {
		return errspkg.ErrServiceRequired
	}
	return PublishEvent(ctx, s.publisher, topic, event, md)
}
