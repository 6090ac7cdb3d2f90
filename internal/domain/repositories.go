package domain

import (
	"context"
	"net/netip"
)

// Ledger is the shared record of address blocks. Writes are unconditional.
type Ledger interface {
	LookupExact(ctx context.Context, cidr netip.Prefix) (AddressBlock, error)
	ScanByPredicate(ctx context.Context, query BlockQuery) ([]AddressBlock, error)
	// Upsert creates or overwrites the record and returns it as stored, with
	// its version bumped.
	Upsert(ctx context.Context, block AddressBlock) (AddressBlock, error)
	// Delete removes the record. Deleting an absent key is not an error.
	Delete(ctx context.Context, cidr netip.Prefix) error
}

// ConditionalLedger adds compare-and-swap writes keyed on AddressBlock.Version.
// An expected version of zero requires the record to be absent. A mismatch
// returns ErrRaceLost and leaves the record untouched. A successful write
// stores version expected+1.
type ConditionalLedger interface {
	Ledger
	UpsertIfVersion(ctx context.Context, block AddressBlock, expected int64) (AddressBlock, error)
	DeleteIfVersion(ctx context.Context, cidr netip.Prefix, expected int64) error
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}
