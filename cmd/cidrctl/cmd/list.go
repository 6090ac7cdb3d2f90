package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

func newListCommand(o *options) *cobra.Command {
	var (
		availability string
		size         string
		query        domain.BlockQuery
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger blocks",
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if availability != "" {
				a, err := domain.ParseAvailability(availability)
				if err != nil {
					return err
				}
				query.Availability = a
			}
			if size != "" {
				bits, err := domain.ParseSize(size)
				if err != nil {
					return err
				}
				query.PrefixLength = bits
			}

			blocks, err := o.service.ListBlocks(cmd.Context(), query)
			if err != nil {
				return err
			}
			return printBlocks(cmd.OutOrStdout(), blocks...)
		},
	}

	cmd.Flags().StringVar(&availability, "availability", "", "Only blocks that are available or in-use")
	cmd.Flags().StringVar(&query.Region, "region", "", "Only blocks in this region")
	cmd.Flags().StringVar(&size, "size", "", "Only blocks of this prefix length")
	return cmd
}
