package transport

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/protomatch/internal/runtime/config"
)

const (
	rabbitQueueSuffix = "protomatch"
	// rabbitPrefetch caps unacknowledged deliveries per consumer.
	rabbitPrefetch = 64
)

var (
	AmqpConnectionFactory = func(cfg amqp.ConnectionConfig, logger watermill.LoggerAdapter) (*amqp.ConnectionWrapper, error) {
		return amqp.NewConnection(cfg, logger)
	}
	AmqpPublisherFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Publisher, error) {
		return amqp.NewPublisherWithConnection(cfg, logger, conn)
	}
	AmqpSubscriberFactory = func(cfg amqp.Config, logger watermill.LoggerAdapter, conn *amqp.ConnectionWrapper) (message.Subscriber, error) {
		return amqp.NewSubscriberWithConnection(cfg, logger, conn)
	}
)

// rabbitConfig declares durable fanout exchanges per topic, each matcher
// binding its own "<topic>_protomatch" queue.
func rabbitConfig(conf *config.Config) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(conf.RabbitMQURL, amqp.GenerateQueueNameTopicNameWithSuffix(rabbitQueueSuffix))
	cfg.Consume.Qos.PrefetchCount = rabbitPrefetch
	return cfg
}

// rabbitTransport shares one connection between publisher and subscriber.
func rabbitTransport(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	conn, err := AmqpConnectionFactory(amqp.ConnectionConfig{
		AmqpURI:   conf.RabbitMQURL,
		Reconnect: amqp.DefaultReconnectConfig(),
	}, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("protomatch: rabbitmq connection: %w", err)
	}

	cfg := rabbitConfig(conf)
	publisher, err := AmqpPublisherFactory(cfg, logger, conn)
	if err != nil {
		return Transport{}, fmt.Errorf("protomatch: rabbitmq publisher: %w", err)
	}
	subscriber, err := AmqpSubscriberFactory(cfg, logger, conn)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, fmt.Errorf("protomatch: rabbitmq subscriber: %w", err)
	}
	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
