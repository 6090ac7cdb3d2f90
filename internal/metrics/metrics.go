// Package metrics exposes allocator outcomes to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cidr_allocator"

type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	overlaps   prometheus.Gauge
}

// New creates the allocator collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Allocator operations by operation and outcome. The outcome is ok or the failure kind.",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Time spent in allocator operations, ledger calls and retries included.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"op"},
		),
		overlaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_overlaps",
			Help:      "Overlapping ledger records found by the last audit.",
		}),
	}
	reg.MustRegister(m.operations, m.duration, m.overlaps)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) observe(op string, started time.Time, err error) {
	m.duration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	m.operations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.KindOf(err) {
	case domain.ErrInvalidRequest:
		return "invalid_request"
	case domain.ErrPoolExhausted:
		return "pool_exhausted"
	case domain.ErrLedgerWrite:
		return "ledger_write"
	case domain.ErrRaceLost:
		return "race_lost"
	case domain.ErrLedgerRead:
		return "ledger_read"
	default:
		return "error"
	}
}

type instrumentedAllocator struct {
	metrics *Metrics
	next    domain.Allocator
}

// Instrument wraps next so every call is counted and timed.
func Instrument(m *Metrics, next domain.Allocator) domain.Allocator {
	if m == nil || next == nil {
		return next
	}
	return &instrumentedAllocator{metrics: m, next: next}
}

func (a *instrumentedAllocator) Allocate(ctx context.Context, input domain.AllocateInput) (domain.AddressBlock, error) {
	started := time.Now()
	block, err := a.next.Allocate(ctx, input)
	a.metrics.observe("allocate", started, err)
	return block, err
}

func (a *instrumentedAllocator) ClaimExact(ctx context.Context, input domain.ClaimInput) (domain.AddressBlock, error) {
	started := time.Now()
	block, err := a.next.ClaimExact(ctx, input)
	a.metrics.observe("claim", started, err)
	return block, err
}

func (a *instrumentedAllocator) ListBlocks(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	started := time.Now()
	blocks, err := a.next.ListBlocks(ctx, query)
	a.metrics.observe("list", started, err)
	return blocks, err
}

func (a *instrumentedAllocator) Audit(ctx context.Context) ([]domain.Overlap, error) {
	started := time.Now()
	overlaps, err := a.next.Audit(ctx)
	a.metrics.observe("audit", started, err)
	if err == nil {
		a.metrics.overlaps.Set(float64(len(overlaps)))
	}
	return overlaps, err
}
