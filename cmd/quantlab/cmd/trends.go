package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/quantlab/trend"
	"github.com/spf13/cobra"
)

type trendOptions struct {
	data dataFlags

	adaptive  bool
	merge     bool
	minLength int
	threshold float64
	json      bool
}

func newTrendsCmd(root *rootOptions) *cobra.Command {
	o := &trendOptions{}

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Split a bar series into up, down and sideways segments",
		Long: `Trends classifies each bar against the previous close and groups the runs
into segments. --adaptive derives the sideways band and minimum length from
the series' own volatility.

Example:
  quantlab trends --data btc.csv --adaptive --merge`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			o.data.apply(cfg)
			bars, dataset, err := loadBars(cmd.Context(), cfg.Data)
			if err != nil {
				return err
			}

			opts := cfg.Trend
			var adaptive *trend.AdaptiveResult
			if o.adaptive {
				ad := trend.Adaptive(bars)
				adaptive = &ad
				opts = ad.Options
			}
			if cmd.Flags().Changed("min-length") {
				opts.MinLength = o.minLength
			}
			if cmd.Flags().Changed("threshold") {
				opts.SidewaysThreshold = o.threshold
			}
			if opts.MinLength < 1 || opts.SidewaysThreshold < 0 {
				return fmt.Errorf("min-length must be >= 1 and threshold >= 0")
			}

			segs := trend.Detect(bars, opts)
			if o.merge {
				segs = trend.Merge(segs)
			}
			stats := trend.Summarize(segs)

			out := cmd.OutOrStdout()
			if o.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Options  trend.Options         `json:"options"`
					Adaptive *trend.AdaptiveResult `json:"adaptive,omitempty"`
					Segments []trend.Segment       `json:"segments"`
					Stats    trend.Stats           `json:"stats"`
				}{opts, adaptive, segs, stats})
			}

			fmt.Fprintf(out, "Trends in %s (min length %d, sideways within %.2f%%)\n", dataset, opts.MinLength, opts.SidewaysThreshold)
			if adaptive != nil && adaptive.Stats != nil {
				st := adaptive.Stats
				fmt.Fprintf(out, "Volatility: median |r| %.3f%%, mean |r| %.3f%%, stdev %.3f%%, ATR %.3f%%\n",
					st.MedianAbsReturn, st.MeanAbsReturn, st.StdReturn, st.ATRPercent)
			}
			fmt.Fprintln(out)

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tSTART\tEND\tBARS\tFROM\tTO\tCHANGE")
			for _, s := range segs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.4f\t%.4f\t%+.2f%%\n", s.Type,
					msTime(s.StartTimestamp), msTime(s.EndTimestamp), s.Length, s.StartPrice, s.EndPrice, s.ChangePercent())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d segments: %d up, %d down, %d sideways, avg %.1f bars\n",
				stats.Total, stats.Up, stats.Down, stats.Sideways, stats.AvgLength)
			return nil
		},
	}

	o.data.register(cmd)
	cmd.Flags().BoolVar(&o.adaptive, "adaptive", false, "derive options from the series volatility")
	cmd.Flags().BoolVar(&o.merge, "merge", false, "merge adjacent segments of the same type")
	cmd.Flags().IntVar(&o.minLength, "min-length", 2, "fewest bars a segment needs")
	cmd.Flags().Float64Var(&o.threshold, "threshold", 1, "percent move still counted as sideways")
	cmd.Flags().BoolVar(&o.json, "json", false, "print as JSON")
	return cmd
}
