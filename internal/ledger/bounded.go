package ledger

import (
	"context"
	"errors"
	"net/netip"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// CallPolicy bounds every ledger call. Reads and unconditional writes that
// run out of time are retried up to Retries times; conditional writes are
// attempted once because a timed-out compare-and-swap may have been applied.
type CallPolicy struct {
	Timeout time.Duration
	Retries uint64
	Backoff time.Duration
}

type boundedLedger struct {
	next   domain.Ledger
	policy CallPolicy
}

type boundedConditionalLedger struct {
	*boundedLedger
	guard domain.ConditionalLedger
}

// WithCallPolicy wraps next. The result implements domain.ConditionalLedger
// exactly when next does.
func WithCallPolicy(next domain.Ledger, policy CallPolicy) domain.Ledger {
	l := &boundedLedger{next: next, policy: policy}
	if guard, ok := next.(domain.ConditionalLedger); ok {
		return &boundedConditionalLedger{boundedLedger: l, guard: guard}
	}
	return l
}

func (l *boundedLedger) Ping(ctx context.Context) error {
	checker, ok := l.next.(domain.HealthChecker)
	if !ok {
		return nil
	}
	return l.once(ctx, checker.Ping)
}

func (l *boundedLedger) LookupExact(ctx context.Context, cidr netip.Prefix) (domain.AddressBlock, error) {
	var block domain.AddressBlock
	err := l.retry(ctx, func(ctx context.Context) error {
		var err error
		block, err = l.next.LookupExact(ctx, cidr)
		return err
	})
	return block, err
}

func (l *boundedLedger) ScanByPredicate(ctx context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	var blocks []domain.AddressBlock
	err := l.retry(ctx, func(ctx context.Context) error {
		var err error
		blocks, err = l.next.ScanByPredicate(ctx, query)
		return err
	})
	return blocks, err
}

func (l *boundedLedger) Upsert(ctx context.Context, block domain.AddressBlock) (domain.AddressBlock, error) {
	var stored domain.AddressBlock
	err := l.retry(ctx, func(ctx context.Context) error {
		var err error
		stored, err = l.next.Upsert(ctx, block)
		return err
	})
	return stored, err
}

func (l *boundedLedger) Delete(ctx context.Context, cidr netip.Prefix) error {
	return l.retry(ctx, func(ctx context.Context) error {
		return l.next.Delete(ctx, cidr)
	})
}

func (l *boundedConditionalLedger) UpsertIfVersion(ctx context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	var stored domain.AddressBlock
	err := l.once(ctx, func(ctx context.Context) error {
		var err error
		stored, err = l.guard.UpsertIfVersion(ctx, block, expected)
		return err
	})
	return stored, err
}

func (l *boundedConditionalLedger) DeleteIfVersion(ctx context.Context, cidr netip.Prefix, expected int64) error {
	return l.once(ctx, func(ctx context.Context) error {
		return l.guard.DeleteIfVersion(ctx, cidr, expected)
	})
}

func (l *boundedLedger) once(ctx context.Context, op func(context.Context) error) error {
	if l.policy.Timeout <= 0 {
		return op(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, l.policy.Timeout)
	defer cancel()
	return op(callCtx)
}

func (l *boundedLedger) retry(ctx context.Context, op func(context.Context) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.policy.Backoff), l.policy.Retries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := l.once(ctx, op)
		if err == nil {
			return nil
		}
		// Only our own per-call deadline is worth another attempt.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}
