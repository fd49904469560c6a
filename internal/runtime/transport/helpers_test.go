package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

type testPublisher struct {
	closed bool
}

func (p *testPublisher) Publish(string, ...*message.Message) error { return nil }

func (p *testPublisher) Close() error {
	p.closed = true
	return nil
}

type testSubscriber struct{}

func (testSubscriber) Subscribe(context.Context, string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}

func (testSubscriber) Close() error { return nil }
