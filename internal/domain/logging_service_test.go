package domain

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"slices"
	"testing"

	"github.com/google/uuid"
)

type captureHandler struct {
	records []slog.Record
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	clone := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clone.AddAttrs(attr)
		return true
	})
	h.records = append(h.records, clone)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h *captureHandler) WithGroup(string) slog.Handler {
	return h
}

func attrValue(record slog.Record, key string) (string, bool) {
	var (
		value string
		found bool
	)
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			value, found = attr.Value.String(), true
			return false
		}
		return true
	})
	return value, found
}

type stubAllocator struct {
	allocateFn func(context.Context, AllocateInput) (AddressBlock, error)
	claimFn    func(context.Context, ClaimInput) (AddressBlock, error)
	listFn     func(context.Context, BlockQuery) ([]AddressBlock, error)
	auditFn    func(context.Context) ([]Overlap, error)
}

func (s stubAllocator) Allocate(ctx context.Context, input AllocateInput) (AddressBlock, error) {
	if s.allocateFn == nil {
		return AddressBlock{}, nil
	}
	return s.allocateFn(ctx, input)
}

func (s stubAllocator) ClaimExact(ctx context.Context, input ClaimInput) (AddressBlock, error) {
	if s.claimFn == nil {
		return AddressBlock{}, nil
	}
	return s.claimFn(ctx, input)
}

func (s stubAllocator) ListBlocks(ctx context.Context, query BlockQuery) ([]AddressBlock, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, query)
}

func (s stubAllocator) Audit(ctx context.Context) ([]Overlap, error) {
	if s.auditFn == nil {
		return nil, nil
	}
	return s.auditFn(ctx)
}

func TestLoggingAllocatorLogsAllocationWithRunID(t *testing.T) {
	handler := &captureHandler{}
	runID := uuid.MustParse("0b7e3a51-52a8-4c4e-9a57-55c3b0d7f6a1")

	var seen uuid.UUID
	service := NewLoggingAllocator(slog.New(handler), stubAllocator{
		allocateFn: func(ctx context.Context, input AllocateInput) (AddressBlock, error) {
			seen, _ = RunIDFromContext(ctx)
			return AddressBlock{
				CIDR:         netip.MustParsePrefix("10.0.12.0/22"),
				Availability: InUse,
				Region:       input.Region,
				Owner:        input.Owner,
				ConfigTag:    input.ConfigTag,
			}, nil
		},
	})

	ctx := WithRunID(context.Background(), runID)
	_, err := service.Allocate(ctx, AllocateInput{PrefixLength: 22, Region: "us-east-1", Owner: "123456789012", ConfigTag: "prod-us-east-1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if seen != runID {
		t.Fatalf("expected run id %s to reach the allocator, got %s", runID, seen)
	}

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(handler.records))
	}
	record := handler.records[0]
	if record.Level != slog.LevelInfo || record.Message != "block allocated" {
		t.Fatalf("unexpected log record: level=%v message=%q", record.Level, record.Message)
	}
	if got, _ := attrValue(record, "run_id"); got != runID.String() {
		t.Fatalf("expected run_id %s, got %q", runID, got)
	}
	if got, _ := attrValue(record, "cidr"); got != "10.0.12.0/22" {
		t.Fatalf("expected cidr attr, got %q", got)
	}
}

func TestLoggingAllocatorLogsFailureKind(t *testing.T) {
	handler := &captureHandler{}
	service := NewLoggingAllocator(slog.New(handler), stubAllocator{
		allocateFn: func(context.Context, AllocateInput) (AddressBlock, error) {
			return AddressBlock{}, &AllocationError{Op: "allocate", Kind: ErrPoolExhausted}
		},
	})

	_, err := service.Allocate(context.Background(), AllocateInput{PrefixLength: 22, Region: "eu-west-1"})
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}

	if len(handler.records) != 1 {
		t.Fatalf("expected 1 log record, got %d", len(handler.records))
	}
	record := handler.records[0]
	if record.Level != slog.LevelError || record.Message != "allocation failed" {
		t.Fatalf("unexpected log record: level=%v message=%q", record.Level, record.Message)
	}
	if got, _ := attrValue(record, "kind"); got != ErrPoolExhausted.Error() {
		t.Fatalf("expected kind %q, got %q", ErrPoolExhausted.Error(), got)
	}
	if _, ok := attrValue(record, "run_id"); !ok {
		t.Fatal("expected a generated run_id attr")
	}
}

func TestLoggingAllocatorWarnsOnManualClaim(t *testing.T) {
	handler := &captureHandler{}
	service := NewLoggingAllocator(slog.New(handler), stubAllocator{
		claimFn: func(_ context.Context, input ClaimInput) (AddressBlock, error) {
			return AddressBlock{CIDR: netip.MustParsePrefix(input.CIDR), Availability: InUse, Region: input.Region}, nil
		},
	})

	if _, err := service.ClaimExact(context.Background(), ClaimInput{CIDR: "10.0.8.0/22", Region: "us-east-1"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(handler.records) != 1 || handler.records[0].Level != slog.LevelWarn {
		t.Fatalf("expected a single warning, got %d records", len(handler.records))
	}
}

func TestLoggingAllocatorWarnsPerOverlap(t *testing.T) {
	handler := &captureHandler{}
	service := NewLoggingAllocator(slog.New(handler), stubAllocator{
		auditFn: func(context.Context) ([]Overlap, error) {
			return []Overlap{
				{Outer: free("10.0.0.0/20", ""), Inner: free("10.0.8.0/22", "")},
				{Outer: free("10.0.0.0/20", ""), Inner: free("10.0.12.0/22", "")},
			}, nil
		},
	})

	overlaps, err := service.Audit(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(overlaps) != 2 || len(handler.records) != 2 {
		t.Fatalf("expected 2 overlaps and 2 records, got %d and %d", len(overlaps), len(handler.records))
	}
}

func TestNewLoggingAllocatorReturnsNextWhenLoggerNil(t *testing.T) {
	called := false
	next := stubAllocator{
		listFn: func(context.Context, BlockQuery) ([]AddressBlock, error) {
			called = true
			return []AddressBlock{free("10.0.0.0/16", "us-east-1")}, nil
		},
	}
	wrapped := NewLoggingAllocator(nil, next)
	blocks, err := wrapped.ListBlocks(context.Background(), BlockQuery{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected wrapped allocator to delegate to next")
	}
	if len(blocks) != 1 {
		t.Fatalf("unexpected blocks: %+v", blocks)
	}
}

func TestCaptureHandlerStoresIndependentRecords(t *testing.T) {
	handler := &captureHandler{}
	logger := slog.New(handler)
	logger.Info("first")
	logger.Info("second")

	if len(handler.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(handler.records))
	}
	if !slices.Equal([]string{handler.records[0].Message, handler.records[1].Message}, []string{"first", "second"}) {
		t.Fatalf("unexpected messages: %q, %q", handler.records[0].Message, handler.records[1].Message)
	}
}
