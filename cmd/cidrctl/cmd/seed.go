package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/seed"
)

const seedLongHelp = `Load the regional pools from a YAML file into the ledger.

Ranges that already have a ledger record are skipped, so the command can be
rerun after the pool file grows.

Example pool file:
  pools:
    us-east-1:
      - 10.0.0.0/16
    eu-west-1:
      - 10.64.0.0/16`

func newSeedCommand(o *options) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load free pools into the ledger",
		Long:  seedLongHelp,
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := seed.Load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				pterm.Info.WithWriter(out).Printfln("%d pool ranges are valid", len(entries))
				return nil
			}

			res, err := seed.Apply(cmd.Context(), o.ledger, entries)
			if err != nil {
				return err
			}
			for _, cidr := range res.Skipped {
				o.logger.Debug("pool range already in ledger", "cidr", cidr.String())
			}
			pterm.Success.WithWriter(out).Printfln("seeded %d ranges, %d already present", len(res.Created), len(res.Skipped))
			if len(res.Created) == 0 {
				return nil
			}
			return printBlocks(out, res.Created...)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only validate the pool file")
	return cmd
}
