package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/protomatch/internal/runtime/config"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Factory abstracts how the matcher service initialises its broker.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
}

// DefaultFactory returns the built-in factory selecting a broker from
// config.Config.Transport.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(_ context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, errspkg.ErrConfigRequired
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	switch name := conf.TransportName(); name {
	case config.TransportChannel:
		return channelTransport(conf, logger)
	case config.TransportNATS:
		return natsTransport(conf, logger)
	case config.TransportKafka:
		return kafkaTransport(conf, logger)
	case config.TransportRabbitMQ:
		return rabbitTransport(conf, logger)
	default:
		return Transport{}, fmt.Errorf("protomatch: unsupported transport %q", name)
	}
}
