// Package seed loads the initial free pools of each region into a ledger.
//
// A pool file lists the ranges handed to the allocator per region:
//
//	pools:
//	  us-east-1:
//	    - 10.0.0.0/16
//	  eu-west-1:
//	    - 10.64.0.0/16
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"slices"
	"time"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"go4.org/netipx"
	"gopkg.in/yaml.v3"
)

type File struct {
	Pools map[string][]string `yaml:"pools"`
}

// Entry is one validated pool range.
type Entry struct {
	Region string
	CIDR   netip.Prefix
}

type Result struct {
	Created []domain.AddressBlock
	// Skipped lists ranges that already had a ledger record of any state.
	Skipped []netip.Prefix
}

func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pool file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a pool file and checks every range. Ranges must be IPv4, in
// canonical form, no larger than the widening floor and disjoint from each
// other across all regions.
func Parse(r io.Reader) ([]Entry, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode pool file: %w", domain.ErrInvalidRequest, err)
	}

	var entries []Entry
	for region, cidrs := range file.Pools {
		if err := domain.ValidateRegion(region); err != nil {
			return nil, err
		}
		for _, raw := range cidrs {
			cidr, err := domain.ParseCIDR(raw)
			if err != nil {
				return nil, fmt.Errorf("pool %s: %w", region, err)
			}
			if cidr.Bits() < domain.DefaultMinPrefixLength {
				return nil, fmt.Errorf("%w: pool %s: %s is larger than %s and would never be allocated from",
					domain.ErrInvalidRequest, region, cidr, domain.FormatSize(domain.DefaultMinPrefixLength))
			}
			entries = append(entries, Entry{Region: region, CIDR: cidr})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return a.CIDR.Addr().Compare(b.CIDR.Addr())
	})
	if err := checkDisjoint(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func checkDisjoint(entries []Entry) error {
	var b netipx.IPSetBuilder
	for _, e := range entries {
		seen, err := b.IPSet()
		if err != nil {
			return fmt.Errorf("build pool set: %w", err)
		}
		if seen.OverlapsPrefix(e.CIDR) {
			return fmt.Errorf("%w: pool %s: %s overlaps another pool entry", domain.ErrInvalidRequest, e.Region, e.CIDR)
		}
		b.AddPrefix(e.CIDR)
	}
	return nil
}

// Apply writes every entry without a ledger record as an available block.
// Existing records, free or claimed, are left untouched so seeding can be
// rerun against a live ledger.
func Apply(ctx context.Context, ledger domain.Ledger, entries []Entry) (Result, error) {
	var res Result
	now := time.Now().UTC()
	for _, e := range entries {
		_, err := ledger.LookupExact(ctx, e.CIDR)
		switch {
		case err == nil:
			res.Skipped = append(res.Skipped, e.CIDR)
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return res, fmt.Errorf("%w: lookup %s: %w", domain.ErrLedgerRead, e.CIDR, err)
		}

		stored, err := ledger.Upsert(ctx, domain.AddressBlock{
			CIDR:         e.CIDR,
			Availability: domain.Available,
			Region:       e.Region,
			UpdatedAt:    now,
		})
		if err != nil {
			return res, fmt.Errorf("%w: seed %s: %w", domain.ErrLedgerWrite, e.CIDR, err)
		}
		res.Created = append(res.Created, stored)
	}
	return res, nil
}
