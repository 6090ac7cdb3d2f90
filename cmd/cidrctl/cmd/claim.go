package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

const claimLongHelp = `Mark an exact range as in use, whatever the ledger currently says about it.

This is the operator override for ranges assigned outside the allocator. It
does not check whether the range is free, claimed by someone else or overlaps
other records. Run "cidrctl audit" afterwards.

Example:
  $ cidrctl claim 10.0.12.0/22 --region us-east-1 --owner 123456789012 --account-type production`

func newClaimCommand(o *options) *cobra.Command {
	var (
		input       domain.ClaimInput
		accountType string
	)

	cmd := &cobra.Command{
		Use:   "claim CIDR",
		Short: "Claim an exact block without checking the ledger",
		Long:  claimLongHelp,
		Args:  cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			input.CIDR = args[0]
			var err error
			if input.ConfigTag, err = domain.ResolveConfigTag(input.ConfigTag, accountType, input.Region); err != nil {
				return err
			}

			block, err := o.service.ClaimExact(cmd.Context(), input)
			if err != nil {
				return err
			}
			pterm.Warning.WithWriter(cmd.OutOrStdout()).Printfln("%s claimed by manual override", block.CIDR)
			return printBlocks(cmd.OutOrStdout(), block)
		},
	}

	cmd.Flags().StringVar(&input.Region, "region", "", "Region of the block")
	cmd.Flags().StringVar(&input.Owner, "owner", "", "Account that will own the block")
	cmd.Flags().StringVar(&input.ConfigTag, "config-tag", "", "Classification stored on the block")
	cmd.Flags().StringVar(&accountType, "account-type", "", "Account category used to derive the config tag")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
