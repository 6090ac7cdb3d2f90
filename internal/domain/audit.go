package domain

import (
	"cmp"
	"net/netip"
	"slices"

	"go4.org/netipx"
)

// Overlap reports two ledger records whose ranges intersect. Such pairs are
// left behind by interrupted commits and manual overrides and have to be
// reconciled by an operator.
type Overlap struct {
	Outer AddressBlock
	Inner AddressBlock
}

// FindOverlaps returns every record that intersects a record sorted before
// it. Each overlapping record is paired with the preceding record that
// reaches furthest.
func FindOverlaps(blocks []AddressBlock) []Overlap {
	sorted := slices.Clone(blocks)
	SortBlocks(sorted)

	var (
		overlaps []Overlap
		reach    AddressBlock
		reachEnd netip.Addr
	)
	for i, b := range sorted {
		r := netipx.RangeOfPrefix(b.CIDR)
		if i > 0 && !reachEnd.Less(r.From()) {
			overlaps = append(overlaps, Overlap{Outer: reach, Inner: b})
		}
		if i == 0 || reachEnd.Less(r.To()) {
			reach, reachEnd = b, r.To()
		}
	}
	return overlaps
}

// SortBlocks orders blocks by base address, larger ranges first.
func SortBlocks(blocks []AddressBlock) {
	slices.SortFunc(blocks, func(a, b AddressBlock) int {
		if c := a.CIDR.Addr().Compare(b.CIDR.Addr()); c != 0 {
			return c
		}
		return cmp.Compare(a.CIDR.Bits(), b.CIDR.Bits())
	})
}
