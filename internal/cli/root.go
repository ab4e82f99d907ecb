package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"notes/internal/config"
	"notes/internal/store/sqlstore"
)

// RootOptions holds state shared by every command.
type RootOptions struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewRootCommand creates the root command. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "notes",
		Short:         "Personal notes web application",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			opts.Config = cfg
			opts.Logger = newLogger(cmd.ErrOrStderr(), cfg)
			return nil
		},
	}

	serve := NewServeCommand(opts)
	cmd.RunE = serve.RunE
	cmd.Flags().AddFlagSet(serve.Flags())

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

func openStore(opts *RootOptions) (*sqlstore.SQLStore, error) {
	st, err := sqlstore.New(opts.Config.DBDriver, opts.Config.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return st, nil
}
