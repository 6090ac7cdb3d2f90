package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

type stubAllocator struct {
	allocateFn func(context.Context, domain.AllocateInput) (domain.AddressBlock, error)
	auditFn    func(context.Context) ([]domain.Overlap, error)
}

func (s stubAllocator) Allocate(ctx context.Context, input domain.AllocateInput) (domain.AddressBlock, error) {
	return s.allocateFn(ctx, input)
}

func (s stubAllocator) ClaimExact(context.Context, domain.ClaimInput) (domain.AddressBlock, error) {
	return domain.AddressBlock{}, nil
}

func (s stubAllocator) ListBlocks(context.Context, domain.BlockQuery) ([]domain.AddressBlock, error) {
	return nil, nil
}

func (s stubAllocator) Audit(ctx context.Context) ([]domain.Overlap, error) {
	return s.auditFn(ctx)
}

func TestInstrumentCountsOutcomesByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	calls := 0
	svc := Instrument(m, stubAllocator{
		allocateFn: func(context.Context, domain.AllocateInput) (domain.AddressBlock, error) {
			calls++
			if calls == 1 {
				return domain.AddressBlock{CIDR: netip.MustParsePrefix("10.0.12.0/22")}, nil
			}
			return domain.AddressBlock{}, &domain.AllocationError{Op: "allocate", Kind: domain.ErrPoolExhausted}
		},
	})

	_, _ = svc.Allocate(context.Background(), domain.AllocateInput{})
	_, _ = svc.Allocate(context.Background(), domain.AllocateInput{})
	_, _ = svc.Allocate(context.Background(), domain.AllocateInput{})

	body := scrape(t, reg)
	for _, want := range []string{
		`cidr_allocator_operations_total{op="allocate",outcome="ok"} 1`,
		`cidr_allocator_operations_total{op="allocate",outcome="pool_exhausted"} 2`,
		`cidr_allocator_operation_duration_seconds_count{op="allocate"} 3`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in output, got %s", want, body)
		}
	}
}

func TestInstrumentRecordsAuditOverlaps(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	svc := Instrument(m, stubAllocator{
		auditFn: func(context.Context) ([]domain.Overlap, error) {
			return make([]domain.Overlap, 2), nil
		},
	})
	if _, err := svc.Audit(context.Background()); err != nil {
		t.Fatalf("Audit returned error: %v", err)
	}
	if body := scrape(t, reg); !strings.Contains(body, "cidr_allocator_ledger_overlaps 2") {
		t.Fatalf("expected overlap gauge 2, got %s", body)
	}
}

func TestOutcomeUnknownError(t *testing.T) {
	if got := outcome(errors.New("boom")); got != "error" {
		t.Fatalf("expected generic outcome, got %q", got)
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.operations.WithLabelValues("claim", "ok").Inc()

	if body := scrape(t, reg); !strings.Contains(body, `cidr_allocator_operations_total{op="claim",outcome="ok"} 1`) {
		t.Fatalf("expected claim counter in output, got %s", body)
	}
}

func TestInstrumentWithoutMetricsReturnsNext(t *testing.T) {
	got := Instrument(nil, stubAllocator{})
	if _, ok := got.(stubAllocator); !ok {
		t.Fatalf("expected next to be returned unchanged, got %T", got)
	}
}
