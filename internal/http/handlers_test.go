package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

type stubHealthChecker struct {
	err error
}

func (s stubHealthChecker) Ping(context.Context) error {
	return s.err
}

type stubService struct {
	allocateFn func(context.Context, domain.AllocateInput) (domain.AddressBlock, error)
	claimFn    func(context.Context, domain.ClaimInput) (domain.AddressBlock, error)
	listFn     func(context.Context, domain.BlockQuery) ([]domain.AddressBlock, error)
	auditFn    func(context.Context) ([]domain.Overlap, error)
}

func (s stubService) Allocate(ctx context.Context, input domain.AllocateInput) (domain.AddressBlock, error) {
	if s.allocateFn == nil {
		return domain.AddressBlock{}, nil
	}
	return s.allocateFn(ctx, input)
}

func (s stubService) ClaimExact(ctx context.Context, input domain.ClaimInput) (domain.AddressBlock, error) {
	if s.claimFn == nil {
		return domain.AddressBlock{}, nil
	}
	return s.claimFn(ctx, input)
}

func (s stubService) ListBlocks(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, query)
}

func (s stubService) Audit(ctx context.Context) ([]domain.Overlap, error) {
	if s.auditFn == nil {
		return nil, nil
	}
	return s.auditFn(ctx)
}

func newHandlerTestAPI(service domain.Allocator, healthErr error) *API {
	return NewAPI(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		stubHealthChecker{err: healthErr},
		service,
		nil,
	)
}

func claimed(cidr string) domain.AddressBlock {
	return domain.AddressBlock{
		CIDR:         netip.MustParsePrefix(cidr),
		Availability: domain.InUse,
		Region:       "us-east-1",
		Owner:        "123456789012",
		ConfigTag:    "prod-us-east-1",
		Version:      1,
	}
}

func TestReadyzReturnsServiceUnavailableWhenHealthCheckFails(t *testing.T) {
	api := newHandlerTestAPI(stubService{}, context.Canceled)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestAllocateReturnsCreatedBlock(t *testing.T) {
	var got domain.AllocateInput
	var sawRunID bool
	api := newHandlerTestAPI(stubService{
		allocateFn: func(ctx context.Context, input domain.AllocateInput) (domain.AddressBlock, error) {
			got = input
			_, sawRunID = domain.RunIDFromContext(ctx)
			return claimed("10.0.12.0/22"), nil
		},
	}, nil)

	body := `{"prefix_length":22,"region":"us-east-1","owner":"123456789012","account_type":"production"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if got.ConfigTag != "prod-us-east-1" || got.PrefixLength != 22 {
		t.Fatalf("unexpected input %+v", got)
	}
	if !sawRunID {
		t.Fatal("expected run id in request context")
	}

	var resp BlockResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.CIDR != "10.0.12.0/22" || resp.Size != "/22" || resp.Availability != "in-use" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.RunID == "" {
		t.Fatal("expected run id in response")
	}
}

func TestAllocateMapsErrorKindsToStatus(t *testing.T) {
	cases := map[string]struct {
		kind error
		want int
	}{
		"invalid request": {domain.ErrInvalidRequest, http.StatusBadRequest},
		"pool exhausted":  {domain.ErrPoolExhausted, http.StatusConflict},
		"race lost":       {domain.ErrRaceLost, http.StatusConflict},
		"ledger write":    {domain.ErrLedgerWrite, http.StatusInternalServerError},
		"ledger read":     {domain.ErrLedgerRead, http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			api := newHandlerTestAPI(stubService{
				allocateFn: func(context.Context, domain.AllocateInput) (domain.AddressBlock, error) {
					return domain.AddressBlock{}, &domain.AllocationError{Op: "allocate", Kind: tc.kind}
				},
			}, nil)

			body := `{"prefix_length":22,"region":"eu-west-1","owner":"123456789012","config_tag":"prod-eu-west-1"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations", strings.NewReader(body))
			rec := httptest.NewRecorder()
			api.Router().ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Kind != tc.kind.Error() {
				t.Fatalf("expected kind %q, got %q", tc.kind.Error(), resp.Kind)
			}
		})
	}
}

func TestAllocateRejectsMalformedBody(t *testing.T) {
	called := false
	api := newHandlerTestAPI(stubService{
		allocateFn: func(context.Context, domain.AllocateInput) (domain.AddressBlock, error) {
			called = true
			return domain.AddressBlock{}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations", strings.NewReader(`{"prefix_length":"big"}`))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if called {
		t.Fatal("service must not be called for a malformed body")
	}
}

func TestAllocateRejectsSandboxAccounts(t *testing.T) {
	api := newHandlerTestAPI(stubService{}, nil)

	body := `{"prefix_length":22,"region":"us-east-1","owner":"123456789012","account_type":"sandbox"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations", strings.NewReader(body))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestClaimExactWithoutAuthIsOpen(t *testing.T) {
	var got domain.ClaimInput
	api := newHandlerTestAPI(stubService{
		claimFn: func(_ context.Context, input domain.ClaimInput) (domain.AddressBlock, error) {
			got = input
			return claimed(input.CIDR), nil
		},
	}, nil)

	body := `{"cidr":"10.0.12.0/22","region":"us-east-1","owner":"123456789012","config_tag":"prod-us-east-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/allocations/manual", strings.NewReader(body))
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	if got.CIDR != "10.0.12.0/22" {
		t.Fatalf("unexpected claim input %+v", got)
	}
}

func TestListBlocksParsesQuery(t *testing.T) {
	var got domain.BlockQuery
	api := newHandlerTestAPI(stubService{
		listFn: func(_ context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
			got = query
			return []domain.AddressBlock{claimed("10.0.12.0/22")}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocks?availability=available&region=eu-west-1&prefix_length=/22", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, rec.Code)
	}
	want := domain.BlockQuery{Availability: domain.Available, Region: "eu-west-1", PrefixLength: 22}
	if got != want {
		t.Fatalf("expected query %+v, got %+v", want, got)
	}
	var resp []BlockResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected 1 block, got %d", len(resp))
	}
}

func TestListBlocksRejectsUnknownAvailability(t *testing.T) {
	api := newHandlerTestAPI(stubService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blocks?availability=reserved", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestAuditHidesUnclassifiedErrors(t *testing.T) {
	api := newHandlerTestAPI(stubService{
		auditFn: func(context.Context) ([]domain.Overlap, error) {
			return nil, errors.New("dial tcp 10.1.2.3:5432: connection refused")
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.1.2.3") {
		t.Fatalf("internal error details leaked: %s", rec.Body.String())
	}
}

func TestAuditReturnsOverlaps(t *testing.T) {
	api := newHandlerTestAPI(stubService{
		auditFn: func(context.Context) ([]domain.Overlap, error) {
			return []domain.Overlap{{Outer: claimed("10.0.0.0/20"), Inner: claimed("10.0.12.0/22")}}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	var resp []OverlapResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 || resp[0].Outer.CIDR != "10.0.0.0/20" || resp[0].Inner.CIDR != "10.0.12.0/22" {
		t.Fatalf("unexpected overlaps %+v", resp)
	}
}

func TestMetricsRouteServesHandler(t *testing.T) {
	api := newHandlerTestAPI(stubService{}, nil).WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("cidr_allocator_operations_total 0"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "cidr_allocator_operations_total") {
		t.Fatalf("unexpected metrics response %d: %s", rec.Code, rec.Body.String())
	}
}
