package domain

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

type Availability string

const (
	Available Availability = "available"
	InUse     Availability = "in-use"
)

func ParseAvailability(s string) (Availability, error) {
	switch Availability(s) {
	case Available, InUse:
		return Availability(s), nil
	}
	return "", fmt.Errorf("%w: unknown availability %q", ErrInvalidRequest, s)
}

// AddressBlock is one ledger record. Owner and ConfigTag are only meaningful
// while the block is InUse.
type AddressBlock struct {
	CIDR         netip.Prefix
	Availability Availability
	Region       string
	Owner        string
	ConfigTag    string
	// Version is bumped by the ledger on every write. Zero means the record
	// does not exist.
	Version   int64
	UpdatedAt time.Time
}

func (b AddressBlock) PrefixLength() int {
	return b.CIDR.Bits()
}

// Size renders the prefix length the way the ledger stores it, e.g. "/22".
func (b AddressBlock) Size() string {
	return FormatSize(b.CIDR.Bits())
}

func FormatSize(bits int) string {
	return "/" + strconv.Itoa(bits)
}

// ParseSize accepts "22" or "/22".
func ParseSize(s string) (int, error) {
	bits, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "/"))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid size %q", ErrInvalidRequest, s)
	}
	return bits, nil
}

// BlockQuery selects ledger records. Zero-valued fields match anything.
type BlockQuery struct {
	Availability Availability
	Region       string
	PrefixLength int
}

func (q BlockQuery) Matches(b AddressBlock) bool {
	if q.Availability != "" && b.Availability != q.Availability {
		return false
	}
	if q.Region != "" && b.Region != q.Region {
		return false
	}
	if q.PrefixLength != 0 && b.PrefixLength() != q.PrefixLength {
		return false
	}
	return true
}
