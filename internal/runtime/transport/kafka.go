package transport

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/protomatch/internal/runtime/config"
	"github.com/drblury/protomatch/internal/runtime/metadata"
)

const defaultKafkaConsumerGroup = "protomatch"

var (
	KafkaPublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		return kafka.NewPublisher(cfg, logger)
	}
	KafkaSubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		return kafka.NewSubscriber(cfg, logger)
	}
)

// entityTypeKey keeps events of one entity type on one partition, so a
// matcher sees them in publish order. Messages without the header fall back
// to their uuid.
func entityTypeKey(_ string, msg *message.Message) (string, error) {
	if key := msg.Metadata.Get(metadata.KeyEntityType); key != "" {
		return key, nil
	}
	return msg.UUID, nil
}

func kafkaTransport(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	marshaler := kafka.NewWithPartitioningMarshaler(entityTypeKey)

	publisher, err := KafkaPublisherFactory(kafka.PublisherConfig{
		Brokers:   conf.KafkaBrokers,
		Marshaler: marshaler,
	}, logger)
	if err != nil {
		return Transport{}, fmt.Errorf("protomatch: kafka publisher: %w", err)
	}

	group := conf.KafkaConsumerGroup
	if group == "" {
		group = defaultKafkaConsumerGroup
	}
	subscriber, err := KafkaSubscriberFactory(kafka.SubscriberConfig{
		Brokers:       conf.KafkaBrokers,
		Unmarshaler:   marshaler,
		ConsumerGroup: group,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return Transport{}, fmt.Errorf("protomatch: kafka subscriber: %w", err)
	}
	return Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
