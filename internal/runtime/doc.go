/*
Package runtime runs continuous queries over an event stream.

A Service wires a Watermill router over the transport selected in
config.Config. Matchers registered on it consume enveloped protobuf events,
evaluate them against a predicate.Set and publish one Notification per
matching filter.

# Middleware

The default chain, outermost first:
  - CorrelationID: ensures every event carries a correlation id
  - LogMessages: debug logging of handled events
  - Tracer: an OpenTelemetry span per event (when tracing is enabled)
  - Metrics: Watermill router metrics and /metrics (when metrics are enabled)
  - Retry: exponential backoff for transient failures
  - PoisonQueue: events that cannot be evaluated go to the poison queue
  - Recoverer: panics become handler errors

Evaluation failures surface as *UnprocessableEventError. They are never
retried and never treated as "no match".

# Sub-packages

  - config/: service configuration with validation
  - errors/: sentinel errors
  - jsoncodec/: JSON encoding of notifications
  - logging/: logger interface and adapters
  - metadata/: notification metadata keys
  - transport/: channel, NATS, Kafka and RabbitMQ transports

# Usage

	set, err := runtime.NewFilterSet(registry, cfg)
	svc := runtime.NewService(cfg, logger, ctx, runtime.ServiceDependencies{})
	err = svc.RegisterMatcher(runtime.MatcherRegistration{
		Name:         "people",
		ConsumeQueue: "people.events",
		PublishQueue: "people.matches",
		Filters:      set,
	})
	err = svc.Start(ctx)
*/
package runtime
