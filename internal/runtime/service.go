package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/drblury/protomatch/internal/runtime/config"
	errspkg "github.com/drblury/protomatch/internal/runtime/errors"
	loggingpkg "github.com/drblury/protomatch/internal/runtime/logging"
	transportpkg "github.com/drblury/protomatch/internal/runtime/transport"
)

const tracerName = "github.com/drblury/protomatch"

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
type ServiceDependencies struct {
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	TransportFactory          transportpkg.Factory
	// MetricsRegisterer defaults to prometheus.DefaultRegisterer.
	MetricsRegisterer prometheus.Registerer
	// TracerProvider defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// Service runs matchers on a Watermill router: events are consumed, evaluated
// against filter sets and notifications are published.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router

	registerer prometheus.Registerer
	metrics    *MatcherMetrics
	tracer     trace.Tracer

	matchers   []matcherEntry
	matchersMu sync.RWMutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
}

// NewService constructs a Service and panics when it cannot. Register
// matchers on the returned Service before calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	svc, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return svc
}

// TryNewService is NewService returning an error instead of panicking.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating matcher service", loggingpkg.LogFields{
		"transport": conf.TransportName(),
		"config":    conf.String(),
	})

	s := &Service{
		Conf:       conf,
		Logger:     log,
		registerer: deps.MetricsRegisterer,
	}
	if s.registerer == nil {
		s.registerer = prometheus.DefaultRegisterer
	}
	provider := deps.TracerProvider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	s.tracer = provider.Tracer(tracerName)

	if conf.MetricsEnabled {
		s.metrics = NewMatcherMetrics(s.registerer)
		if err := s.metrics.Register(); err != nil {
			return nil, fmt.Errorf("protomatch: register metrics: %w", err)
		}
	}

	factory := deps.TransportFactory
	if factory == nil {
		factory = transportpkg.DefaultFactory()
	}
	transport, err := factory.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, err
	}
	s.publisher = transport.Publisher
	s.subscriber = transport.Subscriber

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	return s, nil
}

// Start runs the router until ctx is cancelled or Close is called.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers()
	return routerRun(s.router, ctx)
}

// Running is closed once the router has started all handlers.
func (s *Service) Running() chan struct{} {
	return s.router.Running()
}

// Close stops the router and the transport.
func (s *Service) Close() error {
	errs := []error{s.router.Close()}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.subscriber != nil && any(s.subscriber) != any(s.publisher) {
		errs = append(errs, s.subscriber.Close())
	}
	return errors.Join(errs...)
}

// Publisher exposes the service transport, e.g. to feed events in tests or
// embedded setups.
func (s *Service) Publisher() message.Publisher {
	return s.publisher
}

// Subscriber exposes the service transport.
func (s *Service) Subscriber() message.Subscriber {
	return s.subscriber
}

// Metrics is nil unless metrics are enabled.
func (s *Service) Metrics() *MatcherMetrics {
	return s.metrics
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("protomatch: register middleware %s: %w", name, err)
		}
	}
	return nil
}

// RegisterHTTPHandler serves handler on pattern once the service starts.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers() {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("HTTP server stopped", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
	}
}
