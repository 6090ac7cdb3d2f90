package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

const allocateLongHelp = `Allocate the lowest free block of the requested size in a region.

When no free block of that size exists, the smallest larger free block is
split and the remainder is returned to the pool.

Examples:
  $ cidrctl allocate --size 22 --region us-east-1 --owner 123456789012 --account-type production
  $ cidrctl allocate --size /24 --region eu-west-1 --owner 123456789012 --config-tag nonprod-eu-west-1`

func newAllocateCommand(o *options) *cobra.Command {
	var (
		size        string
		input       domain.AllocateInput
		accountType string
	)

	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate a free block",
		Long:  allocateLongHelp,
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			bits, err := domain.ParseSize(size)
			if err != nil {
				return err
			}
			input.PrefixLength = bits
			if input.ConfigTag, err = domain.ResolveConfigTag(input.ConfigTag, accountType, input.Region); err != nil {
				return err
			}

			block, err := o.service.Allocate(cmd.Context(), input)
			if err != nil {
				return err
			}
			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("allocated %s in %s", block.CIDR, block.Region)
			return printBlocks(cmd.OutOrStdout(), block)
		},
	}

	cmd.Flags().StringVar(&size, "size", "", "Prefix length of the block, e.g. 22 or /22")
	cmd.Flags().StringVar(&input.Region, "region", "", "Region to allocate in")
	cmd.Flags().StringVar(&input.Owner, "owner", "", "Account that will own the block")
	cmd.Flags().StringVar(&input.ConfigTag, "config-tag", "", "Classification stored on the block")
	cmd.Flags().StringVar(&accountType, "account-type", "", "Account category used to derive the config tag")
	_ = cmd.MarkFlagRequired("size")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
