package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Long:  `Display the current version of the quantlab CLI.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "quantlab version %s\n", version)
			fmt.Fprintln(out, "A technical strategy backtester and research toolkit")
			fmt.Fprintln(out, "https://github.com/rustyeddy/quantlab")
		},
	}
}
