package domain

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

const DefaultRaceRetries = 3

type AllocatorConfig struct {
	// MinPrefixLength is the largest block size the finder widens to.
	MinPrefixLength int
	// Guarded enables version-checked writes and whole-run retries when the
	// ledger supports them.
	Guarded bool
	// RaceRetries bounds the reruns after a lost race in guarded mode.
	RaceRetries int
}

type allocator struct {
	ledger      Ledger
	finder      BlockFinder
	committer   Committer
	raceRetries int
}

func NewAllocator(ledger Ledger, cfg AllocatorConfig) Allocator {
	retries := cfg.RaceRetries
	if retries < 0 {
		retries = 0
	}
	return &allocator{
		ledger:      ledger,
		finder:      NewBlockFinder(ledger, cfg.MinPrefixLength),
		committer:   NewCommitter(ledger, cfg.Guarded),
		raceRetries: retries,
	}
}

func (a *allocator) Allocate(ctx context.Context, input AllocateInput) (AddressBlock, error) {
	ctx, runID := ensureRunID(ctx)
	fail := func(kind, err error) error {
		return &AllocationError{Op: "allocate", Kind: kind, RunID: runID, Request: input.String(), Err: err}
	}

	if err := input.Validate(); err != nil {
		return AddressBlock{}, fail(ErrInvalidRequest, err)
	}

	attempts := 1
	if a.committer.Guarded() {
		attempts += a.raceRetries
	}

	var err error
	for range attempts {
		var block AddressBlock
		block, err = a.allocateOnce(ctx, input)
		if err == nil {
			return block, nil
		}
		if errors.Is(err, ErrLedgerWrite) || !errors.Is(err, ErrRaceLost) {
			kind := KindOf(err)
			if kind == nil {
				kind = ErrLedgerWrite
			}
			return AddressBlock{}, fail(kind, err)
		}
	}
	return AddressBlock{}, fail(ErrRaceLost, fmt.Errorf("gave up after %d attempts: %w", attempts, err))
}

func (a *allocator) allocateOnce(ctx context.Context, input AllocateInput) (AddressBlock, error) {
	candidate, err := a.finder.FindFreeBlock(ctx, input.PrefixLength, input.Region)
	if err != nil {
		return AddressBlock{}, err
	}

	chain, err := Split(candidate.CIDR, input.PrefixLength)
	if err != nil {
		return AddressBlock{}, err
	}

	plan := Plan{
		Parent:   candidate,
		Siblings: chain[:len(chain)-1],
		Chosen:   chain[len(chain)-1],
	}
	return a.committer.Commit(ctx, plan, Ownership{
		Owner:     input.Owner,
		Region:    input.Region,
		ConfigTag: input.ConfigTag,
	})
}

// ClaimExact is the operator escape hatch: it marks the given range in use
// without consulting the ledger first, overwriting whatever record exists.
func (a *allocator) ClaimExact(ctx context.Context, input ClaimInput) (AddressBlock, error) {
	ctx, runID := ensureRunID(ctx)
	fail := func(kind, err error) error {
		return &AllocationError{Op: "claim", Kind: kind, RunID: runID, Request: input.String(), Err: err}
	}

	cidr, err := ParseCIDR(input.CIDR)
	if err != nil {
		return AddressBlock{}, fail(ErrInvalidRequest, err)
	}
	if err := validateOwnership(input.Region, input.Owner, input.ConfigTag); err != nil {
		return AddressBlock{}, fail(ErrInvalidRequest, err)
	}

	block, err := a.committer.ClaimUnconditional(ctx, cidr, Ownership{
		Owner:     input.Owner,
		Region:    input.Region,
		ConfigTag: input.ConfigTag,
	})
	if err != nil {
		return AddressBlock{}, fail(ErrLedgerWrite, err)
	}
	return block, nil
}

func (a *allocator) ListBlocks(ctx context.Context, query BlockQuery) ([]AddressBlock, error) {
	blocks, err := a.ledger.ScanByPredicate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerRead, err)
	}
	out := make([]AddressBlock, 0, len(blocks))
	for _, b := range blocks {
		if query.Matches(b) {
			out = append(out, b)
		}
	}
	SortBlocks(out)
	return out, nil
}

func (a *allocator) Audit(ctx context.Context) ([]Overlap, error) {
	blocks, err := a.ledger.ScanByPredicate(ctx, BlockQuery{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerRead, err)
	}
	return FindOverlaps(blocks), nil
}

// ParseCIDR parses an IPv4 CIDR in canonical form. Host bits must be zero.
func ParseCIDR(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: invalid cidr %q", ErrInvalidRequest, s)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %s is not an IPv4 cidr", ErrInvalidRequest, prefix)
	}
	if prefix != prefix.Masked() {
		return netip.Prefix{}, fmt.Errorf("%w: %s has host bits set", ErrInvalidRequest, prefix)
	}
	return prefix, nil
}
