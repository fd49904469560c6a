package transport

import (
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/protomatch/internal/runtime/config"
	"github.com/drblury/protomatch/internal/runtime/metadata"
)

func stubKafka(t *testing.T, pub func(kafka.PublisherConfig) (message.Publisher, error), sub func(kafka.SubscriberConfig) (message.Subscriber, error)) {
	t.Helper()
	origPub, origSub := KafkaPublisherFactory, KafkaSubscriberFactory
	t.Cleanup(func() { KafkaPublisherFactory, KafkaSubscriberFactory = origPub, origSub })

	KafkaPublisherFactory = func(cfg kafka.PublisherConfig, _ watermill.LoggerAdapter) (message.Publisher, error) {
		return pub(cfg)
	}
	KafkaSubscriberFactory = func(cfg kafka.SubscriberConfig, _ watermill.LoggerAdapter) (message.Subscriber, error) {
		return sub(cfg)
	}
}

func TestKafkaTransportPropagatesConfig(t *testing.T) {
	var (
		pubCfg kafka.PublisherConfig
		subCfg kafka.SubscriberConfig
	)
	stubKafka(t,
		func(cfg kafka.PublisherConfig) (message.Publisher, error) { pubCfg = cfg; return &testPublisher{}, nil },
		func(cfg kafka.SubscriberConfig) (message.Subscriber, error) { subCfg = cfg; return testSubscriber{}, nil },
	)

	conf := &config.Config{KafkaBrokers: []string{"k1:9092", "k2:9092"}, KafkaConsumerGroup: "matchers"}
	tr, err := kafkaTransport(conf, watermill.NopLogger{})
	require.NoError(t, err)
	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)

	assert.Equal(t, conf.KafkaBrokers, pubCfg.Brokers)
	assert.Equal(t, conf.KafkaBrokers, subCfg.Brokers)
	assert.Equal(t, "matchers", subCfg.ConsumerGroup)
	assert.NotNil(t, pubCfg.Marshaler)
	assert.NotNil(t, subCfg.Unmarshaler)
}

func TestKafkaTransportDefaultsConsumerGroup(t *testing.T) {
	var group string
	stubKafka(t,
		func(kafka.PublisherConfig) (message.Publisher, error) { return &testPublisher{}, nil },
		func(cfg kafka.SubscriberConfig) (message.Subscriber, error) { group = cfg.ConsumerGroup; return testSubscriber{}, nil },
	)

	_, err := kafkaTransport(&config.Config{KafkaBrokers: []string{"b:9092"}}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, defaultKafkaConsumerGroup, group)
}

func TestKafkaTransportErrors(t *testing.T) {
	t.Run("publisher", func(t *testing.T) {
		subscribed := false
		stubKafka(t,
			func(kafka.PublisherConfig) (message.Publisher, error) { return nil, errors.New("publisher fail") },
			func(kafka.SubscriberConfig) (message.Subscriber, error) { subscribed = true; return testSubscriber{}, nil },
		)
		_, err := kafkaTransport(&config.Config{}, watermill.NopLogger{})
		require.ErrorContains(t, err, "kafka publisher")
		assert.False(t, subscribed, "subscriber must not be built after a publisher failure")
	})

	t.Run("subscriber closes publisher", func(t *testing.T) {
		pub := &testPublisher{}
		stubKafka(t,
			func(kafka.PublisherConfig) (message.Publisher, error) { return pub, nil },
			func(kafka.SubscriberConfig) (message.Subscriber, error) { return nil, errors.New("subscriber fail") },
		)
		_, err := kafkaTransport(&config.Config{}, watermill.NopLogger{})
		require.ErrorContains(t, err, "kafka subscriber")
		assert.True(t, pub.closed)
	})
}

func TestEntityTypeKey(t *testing.T) {
	msg := message.NewMessage("uuid-1", nil)
	key, err := entityTypeKey("events", msg)
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", key)

	msg.Metadata.Set(metadata.KeyEntityType, "people.Person")
	key, err = entityTypeKey("events", msg)
	require.NoError(t, err)
	assert.Equal(t, "people.Person", key)
}
