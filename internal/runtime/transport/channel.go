package transport

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/protomatch/internal/runtime/config"
)

// channelBuffer sizes each subscriber's output channel so a burst of
// notifications does not block the router.
const channelBuffer = 64

// GoChannelFactory builds the in-process pub/sub. One instance serves as both
// publisher and subscriber so matchers and their consumers share topics.
var GoChannelFactory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func channelTransport(conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	pub, sub := GoChannelFactory(gochannel.Config{
		OutputChannelBuffer: channelBuffer,
		Persistent:          conf.ChannelPersistent,
	}, logger)
	return Transport{Publisher: pub, Subscriber: sub}, nil
}
