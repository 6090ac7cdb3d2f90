package domain

import "context"

type Allocator interface {
	Allocate(ctx context.Context, input AllocateInput) (AddressBlock, error)
	ClaimExact(ctx context.Context, input ClaimInput) (AddressBlock, error)
	ListBlocks(ctx context.Context, query BlockQuery) ([]AddressBlock, error)
	Audit(ctx context.Context) ([]Overlap, error)
}
