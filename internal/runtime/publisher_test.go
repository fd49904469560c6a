package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/drblury/protomatch/internal/filter/predicate"
	"github.com/drblury/protomatch/internal/filter/schema/schematest"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
	metadatapkg "github.com/drblury/protomatch/internal/runtime/metadata"
)

func TestNewEventMessageEnvelopesEvent(t *testing.T) {
	reg := schematest.Registry()
	person := schematest.New(reg, schematest.PersonType)
	schematest.Set(person, "age", int32(30))

	msg, err := NewEventMessage(person, metadatapkg.Metadata{"source": "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Metadata.Get("source") != "test" || msg.Metadata.Get(metadatapkg.KeyEntityType) != schematest.PersonType {
		t.Fatalf("unexpected metadata %v", msg.Metadata)
	}

	set, err := predicate.NewSet(reg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := set.Add(predicate.Filter{ID: "thirty", EntityType: schematest.PersonType, Conditions: []predicate.Condition{{Path: "age", Expr: "value == 30"}}}); err != nil {
		t.Fatal(err)
	}
	match, err := set.Match(msg.Payload)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if match.EntityType != schematest.PersonType || !match.Matched() {
		t.Fatalf("unexpected match %+v", match)
	}
}

func TestPublishEventValidations(t *testing.T) {
	person := schematest.New(schematest.Registry(), schematest.PersonType)

	if err := PublishEvent(context.Background(), nil, "events", person, nil); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected ErrPublisherRequired, got %v", err)
	}
	if err := PublishEvent(context.Background(), &testPublisher{}, "", person, nil); !errors.Is(err, errspkg.ErrTopicRequired) {
		t.Fatalf("expected ErrTopicRequired, got %v", err)
	}
	if err := PublishEvent(context.Background(), &testPublisher{}, "events", nil, nil); !errors.Is(err, errspkg.ErrEventRequired) {
		t.Fatalf("expected ErrEventRequired, got %v", err)
	}

	var svc *Service
	if err := svc.PublishEvent(context.Background(), "events", person, nil); !errors.Is(err, errspkg.ErrServiceRequired) {
		t.Fatalf("expected ErrServiceRequired, got %v", err)
	}
}

func TestServicePublishEvent(t *testing.T) {
	svc := newTestService(t)
	pub := svc.publisher.(*testPublisher)

	person := schematest.New(schematest.Registry(), schematest.PersonType)
	if err := svc.PublishEvent(context.Background(), "events", person, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := pub.Topics(); len(got) != 1 || got[0] != "events" {
		t.Fatalf("published to %v", got)
	}
}
