package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/drblury/protomatch/internal/runtime/config"
)

const (
	natsClientName    = "protomatch"
	natsMaxReconnects = -1
	natsQueueGroup    = "protomatch"
)

var (
	NATSPublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return nats.NewPublisher(cfg, logger)
	}
	NATSSubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return nats.NewSubscriber(cfg, logger)
	}
)

func natsTransport(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	marshaler := &nats.NATSMarshaler{}
	options := natsOptions()
	jetStream := natsJetStream(conf)

	publisher, err := NATSPublisherFactory(
		nats.PublisherConfig{
			URL:         conf.NATSURL,
			NatsOptions: options,
			Marshaler:   marshaler,
			JetStream:   jetStream,
		},
		logger,
	)
	if err != nil {
		return Transport{}, err
	}

	subscriber, err := NATSSubscriberFactory(
		nats.SubscriberConfig{
			URL:              conf.NATSURL,
			QueueGroupPrefix: natsQueueGroup,
			NatsOptions:      options,
			Unmarshaler:      marshaler,
			JetStream:        jetStream,
		},
		logger,
	)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, err
	}

	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}

func natsOptions() []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(natsClientName),
		natsgo.MaxReconnects(natsMaxReconnects),
		natsgo.RetryOnFailedConnect(true),
	}
}

func natsJetStream(conf *config.Config) nats.JetStreamConfig {
	return nats.JetStreamConfig{
		Disabled:      !conf.NATSJetStream,
		AutoProvision: conf.NATSJetStream,
		DurablePrefix: natsQueueGroup,
	}
}
