package domain

import (
	"context"
	"net/netip"
)

type stubLedger struct {
	lookupFn func(context.Context, netip.Prefix) (AddressBlock, error)
	scanFn   func(context.Context, BlockQuery) ([]AddressBlock, error)
	upsertFn func(context.Context, AddressBlock) (AddressBlock, error)
	deleteFn func(context.Context, netip.Prefix) error
}

func (s stubLedger) LookupExact(ctx context.Context, cidr netip.Prefix) (AddressBlock, error) {
	if s.lookupFn == nil {
		return AddressBlock{}, ErrNotFound
	}
	return s.lookupFn(ctx, cidr)
}

func (s stubLedger) ScanByPredicate(ctx context.Context, query BlockQuery) ([]AddressBlock, error) {
	if s.scanFn == nil {
		return nil, nil
	}
	return s.scanFn(ctx, query)
}

func (s stubLedger) Upsert(ctx context.Context, block AddressBlock) (AddressBlock, error) {
	if s.upsertFn == nil {
		block.Version++
		return block, nil
	}
	return s.upsertFn(ctx, block)
}

func (s stubLedger) Delete(ctx context.Context, cidr netip.Prefix) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, cidr)
}

func free(cidr, region string) AddressBlock {
	return AddressBlock{CIDR: netip.MustParsePrefix(cidr), Availability: Available, Region: region, Version: 1}
}
