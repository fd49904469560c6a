// Package protomatch evaluates predicate filters over protobuf events and runs
// them as continuous queries on a message broker.
//
// An event is an envelope carrying an entity type name and the encoded
// payload of that type. Filters name attributes of the entity by dotted field
// path and attach CEL conditions to them. A FilterSet indexes every attribute
// any filter mentions in one tree per entity type, so a single streaming pass
// over the payload serves all filters: subtrees nobody asked about are skipped
// without being decoded, and fields missing from the payload are reconciled
// when their enclosing message closes. Missing scalars are reported as their
// declared default or as absent, missing messages and repeated fields as null
// for the whole subtree, and repeated fields that are present announce
// themselves once before their elements.
//
// Service hosts the continuous queries. It reads the broker (in-process
// channels, NATS, Kafka or RabbitMQ) from Config, bootstraps a Watermill
// router with correlation ids, logging, tracing, Prometheus metrics, retries,
// poison queue forwarding and panic recovery, and publishes one Notification
// per matching filter. A minimal setup fills Config, builds a FilterSet,
// creates a Service, registers a matcher and calls Start.
//
// When you need more control, ServiceDependencies accepts your own
// middleware registrations, Prometheus registerer, tracer provider or an
// entire TransportFactory for custom brokers.
package protomatch
