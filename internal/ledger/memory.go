// Package ledger holds the in-process ledger and decorators shared by every
// ledger backend.
package ledger

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

// Memory is a process-local ledger. It backs tests and the "memory" backend
// used for dry runs.
type Memory struct {
	mu      sync.Mutex
	records map[netip.Prefix]domain.AddressBlock
}

func NewMemory(blocks ...domain.AddressBlock) *Memory {
	m := &Memory{records: make(map[netip.Prefix]domain.AddressBlock, len(blocks))}
	for _, b := range blocks {
		b.CIDR = b.CIDR.Masked()
		b.Version++
		m.records[b.CIDR] = b
	}
	return m
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

func (m *Memory) LookupExact(_ context.Context, cidr netip.Prefix) (domain.AddressBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.records[cidr.Masked()]
	if !ok {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s", domain.ErrNotFound, cidr)
	}
	return b, nil
}

func (m *Memory) ScanByPredicate(_ context.Context, query domain.BlockQuery) ([]domain.AddressBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.AddressBlock
	for _, b := range m.records {
		if query.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) Upsert(_ context.Context, block domain.AddressBlock) (domain.AddressBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store(block, m.records[block.CIDR.Masked()].Version), nil
}

func (m *Memory) Delete(_ context.Context, cidr netip.Prefix) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, cidr.Masked())
	return nil
}

func (m *Memory) UpsertIfVersion(_ context.Context, block domain.AddressBlock, expected int64) (domain.AddressBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.records[block.CIDR.Masked()].Version; current != expected {
		return domain.AddressBlock{}, fmt.Errorf("%w: %s is at version %d, expected %d", domain.ErrRaceLost, block.CIDR, current, expected)
	}
	return m.store(block, expected), nil
}

func (m *Memory) DeleteIfVersion(_ context.Context, cidr netip.Prefix, expected int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cidr.Masked()
	if current := m.records[key].Version; current != expected {
		return fmt.Errorf("%w: %s is at version %d, expected %d", domain.ErrRaceLost, cidr, current, expected)
	}
	delete(m.records, key)
	return nil
}

// store must be called with mu held.
func (m *Memory) store(block domain.AddressBlock, previous int64) domain.AddressBlock {
	block.CIDR = block.CIDR.Masked()
	block.Version = previous + 1
	m.records[block.CIDR] = block
	return block
}
