package cmd

import (
	"fmt"
	"log"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/quantlab/market"
	"github.com/rustyeddy/quantlab/market/dukascopy"
	"github.com/rustyeddy/quantlab/store"
	"github.com/spf13/cobra"
)

func newDataCmd(root *rootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the SQLite bar store",
		Long: `Import bar files into a SQLite store and manage the stored series.

Subcommands:
  import - Load a CSV or JSON bar file under a symbol and interval
  fetch  - Download Dukascopy ticks and store them as bars
  list   - Show stored series
  delete - Remove a series

Examples:
  quantlab data import btc-1h.csv --db bars.db --symbol BTC --interval 1h
  quantlab data fetch --db bars.db --symbol EURUSD --from 2026-01-05 --to 2026-01-10 --interval 15m
  quantlab data list --db bars.db`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite bar store (default from config)")

	openStore := func() (*store.SQLite, error) {
		path := dbPath
		if path == "" {
			cfg, err := root.load()
			if err != nil {
				return nil, err
			}
			path = cfg.Data.DBPath
		}
		if path == "" {
			return nil, fmt.Errorf("no bar store: pass --db or set data.db_path")
		}
		return store.Open(path)
	}

	var symbol, interval string

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a bar file into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bars, err := market.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := market.Validate(bars); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.ImportBars(cmd.Context(), symbol, interval, bars)
			if err != nil {
				return err
			}
			log.Printf("imported %d bars from %s", n, args[0])

			st := market.Summarize(bars)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d bars as %s/%s\n", n, symbol, interval)
			fmt.Fprintf(cmd.OutOrStdout(), "  Range: %s to %s\n", st.Start.Format(time.RFC3339), st.End.Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "  Close: min %.4f, max %.4f, avg %.4f\n", st.MinClose, st.MaxClose, st.AvgClose)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "symbol to store the bars under (required)")
	importCmd.Flags().StringVarP(&interval, "interval", "i", "1h", "bar interval")
	importCmd.MarkFlagRequired("symbol")

	fetchCmd := newFetchCmd(openStore)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			series, err := db.ListSeries(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(series) == 0 {
				fmt.Fprintln(out, "No series stored")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tINTERVAL\tBARS\tFIRST\tLAST")
			for _, s := range series {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.Symbol, s.Interval, s.Count, msTime(s.First), msTime(s.Last))
			}
			return tw.Flush()
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <symbol> <interval>",
		Short: "Delete a stored series",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.DeleteSeries(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d bars of %s/%s\n", n, args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(importCmd, fetchCmd, listCmd, deleteCmd)
	return cmd
}

func newFetchCmd(openStore func() (*store.SQLite, error)) *cobra.Command {
	var (
		symbol, interval, from, to string
		base                       string
		workers                    int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download Dukascopy ticks into the store as bars",
		Long: `Fetch downloads the hourly Dukascopy tick files in [--from, --to), builds
mid-price bars of --interval and stores them under --symbol. Hours without
a file are skipped.

Times are UTC, as 2006-01-02 or 2006-01-02T15.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := dukascopy.ParseInterval(interval)
			if err != nil {
				return err
			}
			t0, err := parseHour(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			t1, err := parseHour(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if !t1.After(t0) {
				return fmt.Errorf("--to must be after --from")
			}

			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			c := dukascopy.NewClient()
			c.BaseURL = base
			c.Workers = workers

			start := time.Now()
			ticks, st, err := c.Fetch(cmd.Context(), symbol, t0, t1)
			if err != nil {
				return err
			}
			bars := dukascopy.Aggregate(ticks, width)
			if len(bars) == 0 {
				return fmt.Errorf("no ticks for %s between %s and %s", symbol, from, to)
			}
			n, err := db.ImportBars(cmd.Context(), symbol, interval, bars)
			if err != nil {
				return err
			}
			log.Printf("fetched %d ticks over %d hours in %s", st.Ticks, st.Hours, time.Since(start).Round(time.Millisecond))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Stored %d bars as %s/%s\n", n, symbol, interval)
			fmt.Fprintf(out, "  Hours: %d (%d missing), ticks: %d\n", st.Hours, st.Missing, st.Ticks)
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "instrument, e.g. EURUSD (required)")
	cmd.Flags().StringVarP(&interval, "interval", "i", "1h", "bar interval, e.g. 15m, 1h, 1d")
	cmd.Flags().StringVar(&from, "from", "", "first hour, UTC (required)")
	cmd.Flags().StringVar(&to, "to", "", "end hour, UTC, exclusive (required)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "parallel downloads")
	cmd.Flags().StringVar(&base, "base", dukascopy.DefaultBaseURL, "datafeed base URL")
	cmd.MarkFlagRequired("symbol")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func parseHour(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want 2006-01-02 or 2006-01-02T15)", s)
}

func msTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
