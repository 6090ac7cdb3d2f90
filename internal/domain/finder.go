package domain

import (
	"context"
	"fmt"
)

const DefaultMinPrefixLength = 16

type BlockFinder struct {
	ledger Ledger
	floor  int
}

// NewBlockFinder returns a finder that widens its search no further than
// floor. A non-positive floor means DefaultMinPrefixLength.
func NewBlockFinder(ledger Ledger, floor int) BlockFinder {
	if floor <= 0 {
		floor = DefaultMinPrefixLength
	}
	return BlockFinder{ledger: ledger, floor: floor}
}

// FindFreeBlock looks for an available block of the desired size in region,
// doubling the sought size after every miss until the floor has been
// scanned. Among several matches of one size the lowest address wins.
func (f BlockFinder) FindFreeBlock(ctx context.Context, desired int, region string) (AddressBlock, error) {
	for bits := desired; bits >= f.floor; bits-- {
		query := BlockQuery{Availability: Available, Region: region, PrefixLength: bits}
		blocks, err := f.ledger.ScanByPredicate(ctx, query)
		if err != nil {
			return AddressBlock{}, fmt.Errorf("%w: scan %s in %s: %w", ErrLedgerRead, FormatSize(bits), region, err)
		}
		if block, ok := lowestMatch(blocks, query); ok {
			return block, nil
		}
	}
	return AddressBlock{}, fmt.Errorf("%w: nothing available in %s between %s and %s", ErrPoolExhausted, region, FormatSize(desired), FormatSize(f.floor))
}

func lowestMatch(blocks []AddressBlock, query BlockQuery) (AddressBlock, bool) {
	var (
		best  AddressBlock
		found bool
	)
	for _, b := range blocks {
		if !query.Matches(b) {
			continue
		}
		if !found || b.CIDR.Addr().Less(best.CIDR.Addr()) {
			best, found = b, true
		}
	}
	return best, found
}
