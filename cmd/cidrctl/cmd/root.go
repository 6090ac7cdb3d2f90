// Package cmd holds the cidrctl commands. Every command talks to the ledger
// directly with the same allocator the API server uses.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/app"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
)

const cidrctlLongHelp = `cidrctl hands out VPC address blocks from the regional pools kept in the
allocation ledger, and helps operators inspect and repair that ledger.

Settings are read from the environment (and a .env file) the same way the API
server reads them; flags override them.`

type options struct {
	cfg    app.Config
	envErr error
	debug  bool

	logger  *slog.Logger
	ledger  domain.Ledger
	service domain.Allocator
	closer  func()
}

// NewRootCommand returns the cidrctl command tree.
func NewRootCommand(ctx context.Context) *cobra.Command {
	return newRootCommand(ctx, nil)
}

// newRootCommand uses l instead of opening the configured backend when l is
// not nil.
func newRootCommand(ctx context.Context, l domain.Ledger) *cobra.Command {
	o := &options{closer: func() {}}
	o.cfg, o.envErr = app.LoadEnv()

	rootCmd := &cobra.Command{
		Use:           "cidrctl",
		Short:         "Allocate and inspect VPC address blocks",
		Long:          cidrctlLongHelp,
		SilenceUsage:  true,
		SilenceErrors: false,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd.Context(), l)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			o.closer()
		},
	}
	rootCmd.SetContext(ctx)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.cfg.LedgerBackend, "backend", o.cfg.LedgerBackend, "Ledger backend: postgres, dynamodb, redis or memory")
	flags.StringVar(&o.cfg.DSN, "db-conn", o.cfg.DSN, "Postgres connection string")
	flags.StringVar(&o.cfg.DynamoTable, "dynamodb-table", o.cfg.DynamoTable, "DynamoDB table holding the ledger")
	flags.StringVar(&o.cfg.DynamoEndpoint, "dynamodb-endpoint", o.cfg.DynamoEndpoint, "DynamoDB endpoint override")
	flags.StringVar(&o.cfg.AWSRegion, "aws-region", o.cfg.AWSRegion, "AWS region of the DynamoDB table")
	flags.StringVar(&o.cfg.RedisURL, "redis-url", o.cfg.RedisURL, "Redis URL")
	flags.BoolVar(&o.cfg.Guarded, "guarded", o.cfg.Guarded, "Use version-checked ledger writes and retry lost races")
	flags.IntVar(&o.cfg.RaceRetries, "race-retries", o.cfg.RaceRetries, "Reruns after a lost race in guarded mode")
	flags.IntVar(&o.cfg.MinPrefixLength, "min-prefix-length", o.cfg.MinPrefixLength, "Largest block size the search widens to")
	flags.DurationVar(&o.cfg.LedgerCallTimeout, "ledger-timeout", o.cfg.LedgerCallTimeout, "Timeout of a single ledger call")
	flags.DurationVar(&o.cfg.LedgerCallBackoff, "ledger-backoff", o.cfg.LedgerCallBackoff, "Pause before retrying a timed-out ledger call")
	flags.BoolVarP(&o.debug, "debug", "d", false, "Enable debug logging")

	rootCmd.AddCommand(
		newAllocateCommand(o),
		newClaimCommand(o),
		newListCommand(o),
		newSeedCommand(o),
		newAuditCommand(o),
	)
	return rootCmd
}

func (o *options) setup(ctx context.Context, l domain.Ledger) error {
	level := log.InfoLevel
	if o.debug {
		level = log.DebugLevel
	}
	o.logger = slog.New(log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	}))

	if l != nil {
		o.ledger = l
	} else {
		if o.envErr != nil {
			return o.envErr
		}
		if err := o.cfg.Validate(); err != nil {
			return err
		}
		backend, err := app.OpenLedger(ctx, o.cfg)
		if err != nil {
			return err
		}
		o.ledger, o.closer = backend.Ledger, backend.Close
	}

	o.service = app.NewService(o.cfg, o.ledger, o.logger, nil)
	return nil
}
