package domain

import (
	"fmt"
	"net/netip"

	"go4.org/netipx"
)

// Split buddy-splits parent down to target. Each step halves the current
// block, keeps the first half as a new free sibling and descends into the
// second half. Every element but the last is a sibling; the last element is
// the target-sized block to claim.
func Split(parent netip.Prefix, target int) ([]netip.Prefix, error) {
	if !parent.IsValid() || !parent.Addr().Is4() {
		return nil, fmt.Errorf("%w: %s is not an IPv4 prefix", ErrInvalidRequest, parent)
	}
	if parent != parent.Masked() {
		return nil, fmt.Errorf("%w: %s has host bits set", ErrInvalidRequest, parent)
	}
	if target < parent.Bits() || target > parent.Addr().BitLen() {
		return nil, fmt.Errorf("%w: cannot split %s into /%d", ErrInvalidRequest, parent, target)
	}

	chain := make([]netip.Prefix, 0, target-parent.Bits()+1)
	current := parent
	for current.Bits() < target {
		first, second := halve(current)
		chain = append(chain, first)
		current = second
	}
	return append(chain, current), nil
}

// halve returns the two equal halves of p. p must be masked and shorter than
// the address length.
func halve(p netip.Prefix) (first, second netip.Prefix) {
	bits := p.Bits() + 1
	first = netip.PrefixFrom(p.Addr(), bits)
	second = netip.PrefixFrom(netipx.PrefixLastIP(first).Next(), bits)
	return first, second
}
