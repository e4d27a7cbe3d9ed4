package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/rustyeddy/quantlab/strategies"
	"github.com/spf13/cobra"
)

func newStrategiesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "strategies [key]",
		Short: "List strategies or describe one",
		Long: `Without arguments, list every strategy with its description.
With a strategy key, print its parameters and defaults.

Examples:
  quantlab strategies
  quantlab strategies boll --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			infos := strategies.List()
			if len(args) == 1 {
				info, err := strategies.Describe(strategies.Kind(args[0]))
				if err != nil {
					return err
				}
				infos = []strategies.Info{info}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if len(args) == 1 {
					return enc.Encode(infos[0])
				}
				return enc.Encode(infos)
			}

			if len(args) == 0 {
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tNAME\tDESCRIPTION")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", info.Key, info.Name, info.Description)
				}
				return tw.Flush()
			}

			info := infos[0]
			fmt.Fprintf(out, "%s (%s)\n%s\n\n", info.Name, info.Key, info.Description)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PARAM\tLABEL\tTYPE\tDEFAULT\tRANGE")
			for _, p := range info.Params {
				rng := ""
				if p.Type == "select" {
					rng = fmt.Sprint(p.Options)
				} else if p.Max > 0 {
					rng = fmt.Sprintf("%g..%g step %g", p.Min, p.Max, p.Step)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n", p.Key, p.Label, p.Type, p.Default, rng)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
