package domain

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// Plan is the outcome of finding and splitting: the consumed parent, the new
// free siblings and the block to claim.
type Plan struct {
	Parent   AddressBlock
	Siblings []netip.Prefix
	Chosen   netip.Prefix
}

func (p Plan) IsSplit() bool {
	return p.Chosen != p.Parent.CIDR
}

type Ownership struct {
	Owner     string
	Region    string
	ConfigTag string
}

func (o Ownership) claim(cidr netip.Prefix, now time.Time) AddressBlock {
	return AddressBlock{
		CIDR:         cidr,
		Availability: InUse,
		Region:       o.Region,
		Owner:        o.Owner,
		ConfigTag:    o.ConfigTag,
		UpdatedAt:    now,
	}
}

// Committer persists a plan as a fixed sequence of ledger mutations: sibling
// inserts, the claim, then the parent delete. Without a guard nothing is
// rolled back when a later step fails.
type Committer struct {
	ledger Ledger
	guard  ConditionalLedger
	now    func() time.Time
}

// NewCommitter returns a committer. When guarded is set and the ledger
// supports conditional writes, every mutation is checked against the version
// read by the finder.
func NewCommitter(ledger Ledger, guarded bool) Committer {
	c := Committer{ledger: ledger, now: func() time.Time { return time.Now().UTC() }}
	if guard, ok := ledger.(ConditionalLedger); ok && guarded {
		c.guard = guard
	}
	return c
}

func (c Committer) Guarded() bool {
	return c.guard != nil
}

func (c Committer) Commit(ctx context.Context, plan Plan, owner Ownership) (AddressBlock, error) {
	if c.guard != nil {
		return c.commitGuarded(ctx, plan, owner)
	}

	now := c.now()
	for _, sibling := range plan.Siblings {
		free := AddressBlock{CIDR: sibling, Availability: Available, Region: owner.Region, UpdatedAt: now}
		if _, err := c.ledger.Upsert(ctx, free); err != nil {
			return AddressBlock{}, fmt.Errorf("%w: insert sibling %s: %w", ErrLedgerWrite, sibling, err)
		}
	}

	claimed, err := c.ledger.Upsert(ctx, owner.claim(plan.Chosen, now))
	if err != nil {
		return AddressBlock{}, fmt.Errorf("%w: claim %s: %w", ErrLedgerWrite, plan.Chosen, err)
	}

	if plan.IsSplit() {
		if err := c.ledger.Delete(ctx, plan.Parent.CIDR); err != nil {
			return AddressBlock{}, fmt.Errorf("%w: delete parent %s: %w", ErrLedgerWrite, plan.Parent.CIDR, err)
		}
	}
	return claimed, nil
}

// ClaimUnconditional marks cidr in use whatever the ledger currently holds for
// it, including another owner's claim.
func (c Committer) ClaimUnconditional(ctx context.Context, cidr netip.Prefix, owner Ownership) (AddressBlock, error) {
	claimed, err := c.ledger.Upsert(ctx, owner.claim(cidr, c.now()))
	if err != nil {
		return AddressBlock{}, fmt.Errorf("%w: claim %s: %w", ErrLedgerWrite, cidr, err)
	}
	return claimed, nil
}

func (c Committer) commitGuarded(ctx context.Context, plan Plan, owner Ownership) (AddressBlock, error) {
	now := c.now()
	var inserted []AddressBlock

	for _, sibling := range plan.Siblings {
		free := AddressBlock{CIDR: sibling, Availability: Available, Region: owner.Region, UpdatedAt: now}
		stored, err := c.guard.UpsertIfVersion(ctx, free, 0)
		if err != nil {
			return AddressBlock{}, c.abort(ctx, inserted, fmt.Errorf("insert sibling %s: %w", sibling, err))
		}
		inserted = append(inserted, stored)
	}

	// A split claims a block that did not exist before; an exact match claims
	// the parent itself at the version the finder saw.
	expected := int64(0)
	if !plan.IsSplit() {
		expected = plan.Parent.Version
	}
	claimed, err := c.guard.UpsertIfVersion(ctx, owner.claim(plan.Chosen, now), expected)
	if err != nil {
		return AddressBlock{}, c.abort(ctx, inserted, fmt.Errorf("claim %s: %w", plan.Chosen, err))
	}

	if plan.IsSplit() {
		inserted = append(inserted, claimed)
		if err := c.guard.DeleteIfVersion(ctx, plan.Parent.CIDR, plan.Parent.Version); err != nil {
			return AddressBlock{}, c.abort(ctx, inserted, fmt.Errorf("delete parent %s: %w", plan.Parent.CIDR, err))
		}
	}
	return claimed, nil
}

// abort turns a failed guarded step into the run's error. On a lost race the
// records this run inserted are removed again so the run can be retried;
// records changed by someone else in the meantime are left alone.
func (c Committer) abort(ctx context.Context, inserted []AddressBlock, cause error) error {
	if !errors.Is(cause, ErrRaceLost) {
		return fmt.Errorf("%w: %w", ErrLedgerWrite, cause)
	}

	var orphans []string
	for i := len(inserted) - 1; i >= 0; i-- {
		b := inserted[i]
		err := c.guard.DeleteIfVersion(ctx, b.CIDR, b.Version)
		if err != nil && !errors.Is(err, ErrRaceLost) {
			orphans = append(orphans, b.CIDR.String())
		}
	}
	if len(orphans) > 0 {
		return fmt.Errorf("%w: %w; could not remove %s", ErrLedgerWrite, cause, strings.Join(orphans, ", "))
	}
	return cause
}
