package runtime

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/protomatch/internal/filter/predicate"
)

const (
	metricsNamespace = "protomatch"
	metricsSubsystem = "matcher"
)

// Evaluation outcomes used as the "outcome" label.
const (
	OutcomeMatched   = "matched"
	OutcomeUnmatched = "unmatched"
	OutcomeFailed    = "failed"
)

// MatcherMetrics records what the matchers of a service evaluate.
type MatcherMetrics struct {
	mu sync.Mutex

	evaluations *prometheus.CounterVec
	matches     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	deliveries  *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

func newMatcherCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newMatcherHistogramVec(name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}

// NewMatcherMetrics creates the collectors. Nothing is registered until
// Register is called.
func NewMatcherMetrics(registerer prometheus.Registerer) *MatcherMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &MatcherMetrics{
		registerer:  registerer,
		evaluations: newMatcherCounterVec("evaluations_total", "Events evaluated, by outcome", []string{"handler", "outcome"}),
		matches:     newMatcherCounterVec("matches_total", "Filter matches, by entity type", []string{"handler", "entity_type"}),
		duration:    newMatcherHistogramVec("evaluation_duration_seconds", "Time spent evaluating one event", prometheus.ExponentialBuckets(0.00001, 4, 10), []string{"handler"}),
		deliveries:  newMatcherHistogramVec("deliveries", "Attribute values delivered while evaluating one event", []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256}, []string{"handler"}),
	}
}

// Register registers the collectors. Safe to call multiple times; collectors
// already registered by another instance are adopted.
func (m *MatcherMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	var err error
	if m.evaluations, err = registerCounter(m.registerer, m.evaluations); err != nil {
		return err
	}
	if m.matches, err = registerCounter(m.registerer, m.matches); err != nil {
		return err
	}
	if m.duration, err = registerHistogram(m.registerer, m.duration); err != nil {
		return err
	}
	if m.deliveries, err = registerHistogram(m.registerer, m.deliveries); err != nil {
		return err
	}
	m.registered = true
	return nil
}

func registerCounter(r prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := r.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func registerHistogram(r prometheus.Registerer, h *prometheus.HistogramVec) (*prometheus.HistogramVec, error) {
	if err := r.Register(h); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return h, nil
}

// Observe records one evaluation. A nil receiver records nothing.
func (m *MatcherMetrics) Observe(handler string, match predicate.Match, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(handler).Observe(elapsed.Seconds())
	m.deliveries.WithLabelValues(handler).Observe(float64(match.Deliveries))

	switch {
	case err != nil:
		m.evaluations.WithLabelValues(handler, OutcomeFailed).Inc()
	case match.Matched():
		m.evaluations.WithLabelValues(handler, OutcomeMatched).Inc()
		m.matches.WithLabelValues(handler, match.EntityType).Add(float64(len(match.FilterIDs)))
	default:
		m.evaluations.WithLabelValues(handler, OutcomeUnmatched).Inc()
	}
}
