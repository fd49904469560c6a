package transport

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/protomatch/internal/runtime/config"
)

func stubNATS(t *testing.T) {
	t.Helper()
	origPub, origSub := NATSPublisherFactory, NATSSubscriberFactory
	t.Cleanup(func() {
		NATSPublisherFactory, NATSSubscriberFactory = origPub, origSub
	})
}

func TestNATSTransportPassesConfig(t *testing.T) {
	stubNATS(t)

	var pubCfg nats.PublisherConfig
	var subCfg nats.SubscriberConfig
	NATSPublisherFactory = func(cfg nats.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		pubCfg = cfg
		return &testPublisher{}, nil
	}
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		subCfg = cfg
		return testSubscriber{}, nil
	}

	tr, err := natsTransport(&config.Config{NATSURL: "nats://broker:4222"}, watermill.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Publisher == nil || tr.Subscriber == nil {
		t.Fatal("expected publisher and subscriber")
	}
	if pubCfg.URL != "nats://broker:4222" || subCfg.URL != "nats://broker:4222" {
		t.Fatalf("url not propagated: %q %q", pubCfg.URL, subCfg.URL)
	}
	if len(pubCfg.NatsOptions) != len(natsOptions()) {
		t.Fatalf("expected %d connection options, got %d", len(natsOptions()), len(pubCfg.NatsOptions))
	}
	if !pubCfg.JetStream.Disabled || !subCfg.JetStream.Disabled {
		t.Fatal("jetstream should be disabled by default")
	}
	if subCfg.QueueGroupPrefix != natsQueueGroup {
		t.Fatalf("queue group = %q", subCfg.QueueGroupPrefix)
	}
}

func TestNATSTransportJetStream(t *testing.T) {
	stubNATS(t)

	var js nats.JetStreamConfig
	NATSPublisherFactory = func(cfg nats.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		js = cfg.JetStream
		return &testPublisher{}, nil
	}
	NATSSubscriberFactory = func(nats.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
		return testSubscriber{}, nil
	}

	if _, err := natsTransport(&config.Config{NATSJetStream: true}, watermill.NopLogger{}); err != nil {
		t.Fatal(err)
	}
	if js.Disabled || !js.AutoProvision {
		t.Fatalf("unexpected jetstream config: %+v", js)
	}
}

func TestNATSTransportFactoryErrors(t *testing.T) {
	stubNATS(t)

	t.Run("publisher error", func(t *testing.T) {
		NATSPublisherFactory = func(nats.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("pub error")
		}
		if _, err := natsTransport(&config.Config{}, watermill.NopLogger{}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("subscriber error closes publisher", func(t *testing.T) {
		pub := &testPublisher{}
		NATSPublisherFactory = func(nats.PublisherConfig, watermill.LoggerAdapter) (message.Publisher, error) {
			return pub, nil
		}
		NATSSubscriberFactory = func(nats.SubscriberConfig, watermill.LoggerAdapter) (message.Subscriber, error) {
			return nil, errors.New("sub error")
		}
		if _, err := natsTransport(&config.Config{}, watermill.NopLogger{}); err == nil {
			t.Error("expected error")
		}
		if !pub.closed {
			t.Error("publisher should be closed")
		}
	})
}
