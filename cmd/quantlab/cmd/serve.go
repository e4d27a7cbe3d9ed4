package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/quantlab/api"
	"github.com/rustyeddy/quantlab/store"
	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve indicators, signals and backtests over HTTP",
		Long: `Start the JSON API. Requests may carry bars inline; with --db they may
also name a stored symbol and interval instead.

Example:
  quantlab serve --addr :8080 --db bars.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Data.DBPath = dbPath
			}

			var bars api.BarSource
			if cfg.Data.DBPath != "" {
				db, err := store.Open(cfg.Data.DBPath)
				if err != nil {
					return fmt.Errorf("open db: %w", err)
				}
				defer db.Close()
				bars = db
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.New(cfg, bars).ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite bar store to serve stored series from")
	return cmd
}
