package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/drblury/protomatch/internal/runtime/config"
	loggingpkg "github.com/drblury/protomatch/internal/runtime/logging"
)

type testPublisher struct {
	mu        sync.Mutex
	published []string
	messages  []*message.Message
	err       error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, topic)
		p.messages = append(p.messages, msg)
	}
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]string, len(p.published))
	copy(clone, p.published)
	return clone
}

type testSubscriber struct {
	err error
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (s *testSubscriber) Close() error { return nil }

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

// newTestService builds a Service around stub transports without running
// the constructor.
func newTestService(t *testing.T) *Service {
	t.Helper()
	log := newTestLogger()
	router, err := message.NewRouter(message.RouterConfig{}, loggingpkg.NewWatermillAdapter(log))
	if err != nil {
		t.Fatalf("router init failed: %v", err)
	}
	return &Service{
		Conf:       &configpkg.Config{},
		Logger:     log,
		router:     router,
		publisher:  &testPublisher{},
		subscriber: &testSubscriber{},
	}
}

type recordingServiceLogger struct {
	mu     sync.Mutex
	debugs int
	errors int
	traces int
}

func (r *recordingServiceLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return r }

func (r *recordingServiceLogger) Debug(string, loggingpkg.LogFields) {
	r.mu.Lock()
	r.debugs++
	r.mu.Unlock()
}

func (r *recordingServiceLogger) Info(string, loggingpkg.LogFields) {}

func (r *recordingServiceLogger) Error(string, error, loggingpkg.LogFields) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
}

func (r *recordingServiceLogger) Trace(string, loggingpkg.LogFields) {
	r.mu.Lock()
	r.traces++
	r.mu.Unlock()
}

func (r *recordingServiceLogger) counts() (debugs, errors, traces int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debugs, r.errors, r.traces
}
