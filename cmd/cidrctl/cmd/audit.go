package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newAuditCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Report overlapping ledger records",
		Long: `Report ledger records whose ranges overlap.

Overlaps are left behind by interrupted allocations and by manual claims. The
command exits non-zero when it finds any.`,
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			overlaps, err := o.service.Audit(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(overlaps) == 0 {
				pterm.Success.WithWriter(out).Println("no overlapping records")
				return nil
			}
			if err := printOverlaps(out, overlaps); err != nil {
				return err
			}
			return fmt.Errorf("found %d overlapping record pairs", len(overlaps))
		},
	}
}
