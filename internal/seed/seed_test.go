package seed

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/ledger"
)

const poolFile = `
pools:
  us-east-1:
    - 10.0.0.0/16
    - 10.2.0.0/20
  eu-west-1:
    - 10.1.0.0/16
`

func TestParseSortsEntriesByAddress(t *testing.T) {
	entries, err := Parse(strings.NewReader(poolFile))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	want := []Entry{
		{Region: "us-east-1", CIDR: netip.MustParsePrefix("10.0.0.0/16")},
		{Region: "eu-west-1", CIDR: netip.MustParsePrefix("10.1.0.0/16")},
		{Region: "us-east-1", CIDR: netip.MustParsePrefix("10.2.0.0/20")},
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("entry %d: expected %+v, got %+v", i, want[i], entries[i])
		}
	}
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"overlap across regions": "pools:\n  us-east-1: [10.0.0.0/16]\n  eu-west-1: [10.0.128.0/17]\n",
		"host bits":              "pools:\n  us-east-1: [10.0.0.1/16]\n",
		"bad region":             "pools:\n  mars-north-9: [10.0.0.0/16]\n",
		"larger than floor":      "pools:\n  us-east-1: [10.0.0.0/8]\n",
		"ipv6":                   "pools:\n  us-east-1: ['fd00::/48']\n",
		"unknown field":          "regions:\n  us-east-1: [10.0.0.0/16]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(body))
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestParseEmptyFile(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestApplySkipsExistingRecords(t *testing.T) {
	claimed := domain.AddressBlock{
		CIDR:         netip.MustParsePrefix("10.0.0.0/16"),
		Availability: domain.InUse,
		Region:       "us-east-1",
		Owner:        "123456789012",
		ConfigTag:    "prod-us-east-1",
	}
	l := ledger.NewMemory(claimed)

	entries, err := Parse(strings.NewReader(poolFile))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	res, err := Apply(context.Background(), l, entries)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}

	if len(res.Skipped) != 1 || res.Skipped[0] != claimed.CIDR {
		t.Fatalf("expected %s to be skipped, got %v", claimed.CIDR, res.Skipped)
	}
	if len(res.Created) != 2 {
		t.Fatalf("expected 2 created blocks, got %d", len(res.Created))
	}

	kept, err := l.LookupExact(context.Background(), claimed.CIDR)
	if err != nil {
		t.Fatalf("LookupExact returned error: %v", err)
	}
	if kept.Availability != domain.InUse || kept.Owner != claimed.Owner {
		t.Fatalf("existing claim was modified: %+v", kept)
	}

	eu, err := l.LookupExact(context.Background(), netip.MustParsePrefix("10.1.0.0/16"))
	if err != nil {
		t.Fatalf("LookupExact returned error: %v", err)
	}
	if eu.Availability != domain.Available || eu.Region != "eu-west-1" {
		t.Fatalf("unexpected seeded block %+v", eu)
	}
}

type failingLedger struct {
	domain.Ledger
}

func (failingLedger) LookupExact(context.Context, netip.Prefix) (domain.AddressBlock, error) {
	return domain.AddressBlock{}, errors.New("connection refused")
}

func TestApplyReportsLookupFailures(t *testing.T) {
	_, err := Apply(context.Background(), failingLedger{}, []Entry{
		{Region: "us-east-1", CIDR: netip.MustParsePrefix("10.0.0.0/16")},
	})
	if !errors.Is(err, domain.ErrLedgerRead) {
		t.Fatalf("expected ErrLedgerRead, got %v", err)
	}
}
