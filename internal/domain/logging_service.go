package domain

import (
	"context"
	"log/slog"
)

type loggingAllocator struct {
	logger *slog.Logger
	next   Allocator
}

func NewLoggingAllocator(logger *slog.Logger, next Allocator) Allocator {
	if logger == nil || next == nil {
		return next
	}

	return &loggingAllocator{
		logger: logger,
		next:   next,
	}
}

func (s *loggingAllocator) Allocate(ctx context.Context, input AllocateInput) (AddressBlock, error) {
	ctx, runID := ensureRunID(ctx)
	block, err := s.next.Allocate(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "allocation failed",
			"run_id", runID.String(),
			"prefix_length", FormatSize(input.PrefixLength),
			"region", input.Region,
			"owner", input.Owner,
			"kind", kindName(err),
			"err", err.Error(),
		)
		return AddressBlock{}, err
	}

	s.logger.InfoContext(ctx, "block allocated",
		"run_id", runID.String(),
		"cidr", block.CIDR.String(),
		"region", block.Region,
		"owner", block.Owner,
		"config_tag", block.ConfigTag,
	)
	return block, nil
}

func (s *loggingAllocator) ClaimExact(ctx context.Context, input ClaimInput) (AddressBlock, error) {
	ctx, runID := ensureRunID(ctx)
	block, err := s.next.ClaimExact(ctx, input)
	if err != nil {
		s.logger.ErrorContext(ctx, "manual claim failed",
			"run_id", runID.String(),
			"cidr", input.CIDR,
			"region", input.Region,
			"kind", kindName(err),
			"err", err.Error(),
		)
		return AddressBlock{}, err
	}

	// The override never checks the previous state of the record.
	s.logger.WarnContext(ctx, "block claimed by manual override",
		"run_id", runID.String(),
		"cidr", block.CIDR.String(),
		"region", block.Region,
		"owner", block.Owner,
		"config_tag", block.ConfigTag,
	)
	return block, nil
}

func (s *loggingAllocator) ListBlocks(ctx context.Context, query BlockQuery) ([]AddressBlock, error) {
	blocks, err := s.next.ListBlocks(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "list blocks failed", "region", query.Region, "err", err.Error())
	}
	return blocks, err
}

func (s *loggingAllocator) Audit(ctx context.Context) ([]Overlap, error) {
	overlaps, err := s.next.Audit(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger audit failed", "err", err.Error())
		return nil, err
	}
	for _, o := range overlaps {
		s.logger.WarnContext(ctx, "overlapping ledger records", "outer", o.Outer.CIDR.String(), "inner", o.Inner.CIDR.String())
	}
	return overlaps, nil
}

func kindName(err error) string {
	if kind := KindOf(err); kind != nil {
		return kind.Error()
	}
	return "unknown"
}
