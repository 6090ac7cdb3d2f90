package app

import (
	"context"
	"fmt"
	"log/slog"

	appdb "github.com/Flarenzy/vpc-cidr-allocator/internal/db"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/dynamoledger"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/ledger"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/metrics"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/redisledger"
)

// Backend is an opened ledger together with its readiness check. Close
// releases the connections.
type Backend struct {
	Ledger domain.Ledger
	Health domain.HealthChecker
	Close  func()
}

// OpenLedger connects the configured backend and bounds every call with the
// configured timeout and retry budget.
func OpenLedger(ctx context.Context, cfg Config) (Backend, error) {
	var (
		raw    domain.Ledger
		health domain.HealthChecker
		closer = func() {}
	)

	switch cfg.LedgerBackend {
	case BackendPostgres, "":
		pool, err := appdb.NewPool(ctx, cfg.DSN)
		if err != nil {
			return Backend{}, err
		}
		raw, health, closer = appdb.NewBlockRepository(pool), pool, pool.Close
	case BackendDynamoDB:
		l, err := dynamoledger.NewFromConfig(cfg.AWSRegion, cfg.DynamoEndpoint, cfg.DynamoTable)
		if err != nil {
			return Backend{}, err
		}
		raw, health = l, l
	case BackendRedis:
		l, err := redisledger.Open(ctx, cfg.RedisURL)
		if err != nil {
			return Backend{}, err
		}
		raw, health, closer = l, l, func() { _ = l.Close() }
	case BackendMemory:
		l := ledger.NewMemory()
		raw, health = l, l
	default:
		return Backend{}, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}

	bounded := ledger.WithCallPolicy(raw, cfg.CallPolicy())
	return Backend{Ledger: bounded, Health: health, Close: closer}, nil
}

// CallPolicy bounds each ledger call with the configured timeout, retry
// budget and pause between retries.
func (c Config) CallPolicy() ledger.CallPolicy {
	return ledger.CallPolicy{
		Timeout: c.LedgerCallTimeout,
		Retries: c.LedgerCallRetries,
		Backoff: c.LedgerCallBackoff,
	}
}

// NewService assembles the allocator with its metrics and logging decorators.
func NewService(cfg Config, l domain.Ledger, logger *slog.Logger, m *metrics.Metrics) domain.Allocator {
	svc := domain.NewAllocator(l, domain.AllocatorConfig{
		MinPrefixLength: cfg.MinPrefixLength,
		Guarded:         cfg.Guarded,
		RaceRetries:     cfg.RaceRetries,
	})
	svc = metrics.Instrument(m, svc)
	return domain.NewLoggingAllocator(logger, svc)
}
