package cmd

import (
	"io"
	"strconv"

	"github.com/pterm/pterm"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

func blockTableData() pterm.TableData {
	return pterm.TableData{
		{"CIDR", "Size", "Availability", "Region", "Owner", "Config tag", "Version"},
	}
}

func appendBlockTableData(td pterm.TableData, b domain.AddressBlock) pterm.TableData {
	return append(td, []string{
		b.CIDR.String(),
		b.Size(),
		string(b.Availability),
		b.Region,
		b.Owner,
		b.ConfigTag,
		strconv.FormatInt(b.Version, 10),
	})
}

func printBlocks(w io.Writer, blocks ...domain.AddressBlock) error {
	td := blockTableData()
	for _, b := range blocks {
		td = appendBlockTableData(td, b)
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(td).Render()
}

func printOverlaps(w io.Writer, overlaps []domain.Overlap) error {
	td := pterm.TableData{{"Outer", "Outer state", "Inner", "Inner state"}}
	for _, o := range overlaps {
		td = append(td, []string{
			o.Outer.CIDR.String(), string(o.Outer.Availability),
			o.Inner.CIDR.String(), string(o.Inner.Availability),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(td).Render()
}

