package runtime

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/protomatch/internal/filter/predicate"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
	loggingpkg "github.com/drblury/protomatch/internal/runtime/logging"
)

// MatcherRegistration binds a filter set to a pair of queues. Every event
// consumed from ConsumeQueue is evaluated against Filters, and one
// Notification per matching filter is published to PublishQueue.
type MatcherRegistration struct {
	Name         string
	ConsumeQueue string
	PublishQueue string
	Filters      *predicate.Set

	// Subscriber and Publisher default to the service transport.
	Subscriber message.Subscriber
	Publisher  message.Publisher
}

// MatcherInfo describes a registered matcher.
type MatcherInfo struct {
	Name         string
	ConsumeQueue string
	PublishQueue string
	Filters      int
}

// RegisterMatcher attaches a matcher to the service router.
func RegisterMatcher(svc *Service, cfg MatcherRegistration) error {
	if svc == nil {
		return errspkg.ErrServiceRequired
	}
	return svc.RegisterMatcher(cfg)
}

// RegisterMatcher attaches a matcher to the router. Call it before Start.
func (s *Service) RegisterMatcher(cfg MatcherRegistration) error {
	switch {
	case cfg.Name == "":
		return errspkg.ErrHandlerNameRequired
	case cfg.ConsumeQueue == "":
		return errspkg.ErrConsumeQueueRequired
	case cfg.PublishQueue == "":
		return errspkg.ErrPublishQueueRequired
	case cfg.Filters == nil:
		return errspkg.ErrFilterSetRequired
	}
	if cfg.Subscriber == nil {
		cfg.Subscriber = s.subscriber
	}
	if cfg.Publisher == nil {
		cfg.Publisher = s.publisher
	}

	s.matchersMu.Lock()
	s.matchers = append(s.matchers, matcherEntry{
		name:         cfg.Name,
		consumeQueue: cfg.ConsumeQueue,
		publishQueue: cfg.PublishQueue,
		filters:      cfg.Filters,
	})
	s.matchersMu.Unlock()

	s.router.AddHandler(
		cfg.Name,
		cfg.ConsumeQueue,
		cfg.Subscriber,
		cfg.PublishQueue,
		cfg.Publisher,
		s.matchHandler(cfg.Name, cfg.Filters),
	)
	return nil
}

type matcherEntry struct {
	name         string
	consumeQueue string
	publishQueue string
	filters      *predicate.Set
}

// Matchers lists the registered matchers in registration order.
func (s *Service) Matchers() []MatcherInfo {
	s.matchersMu.RLock()
	defer s.matchersMu.RUnlock()

	out := make([]MatcherInfo, len(s.matchers))
	for i, m := range s.matchers {
		out[i] = MatcherInfo{
			Name:         m.name,
			ConsumeQueue: m.consumeQueue,
			PublishQueue: m.publishQueue,
			Filters:      m.filters.Len(),
		}
	}
	return out
}

func (s *Service) matchHandler(name string, filters *predicate.Set) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		start := time.Now()
		match, err := filters.Match(msg.Payload)
		s.metrics.Observe(name, match, err, time.Since(start))

		span := trace.SpanFromContext(msg.Context())
		span.SetAttributes(
			attribute.String("protomatch.entity_type", match.EntityType),
			attribute.Int("protomatch.deliveries", match.Deliveries),
			attribute.StringSlice("protomatch.filter_ids", match.FilterIDs),
		)

		fields := loggingpkg.MessageFields(msg)
		fields[loggingpkg.FieldHandler] = name
		fields[loggingpkg.FieldEntityType] = match.EntityType
		fields[loggingpkg.FieldDeliveries] = match.Deliveries

		if err != nil {
			s.Logger.Error("Event evaluation failed", err, fields)
			return nil, &UnprocessableEventError{Handler: name, MessageUUID: msg.UUID, Err: err}
		}
		if !match.Matched() {
			s.Logger.Trace("No filter matched", fields)
			return nil, nil
		}

		out := make([]*message.Message, 0, len(match.FilterIDs))
		for _, filterID := range match.FilterIDs {
			notification, err := newNotification(msg, filterID, match).message(name, msg)
			if err != nil {
				return nil, err
			}
			out = append(out, notification)
		}
		fields[loggingpkg.FieldFilterIDs] = match.FilterIDs
		s.Logger.Debug("Event matched", fields)
		return out, nil
	}
}
