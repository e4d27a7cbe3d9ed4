package cmd

import (
	"fmt"

	"github.com/rustyeddy/quantlab/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage quantlab configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file
  show     - Print the effective configuration

Examples:
  quantlab config init -o quantlab.yaml
  quantlab config validate -f quantlab.yaml`,
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Long: `Create a new configuration file with default settings. The format follows
the extension: .json writes JSON, anything else YAML.

Example:
  quantlab config init -o quantlab.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created default configuration: %s\n", output)
			fmt.Fprintln(out, "\nEdit the file and run with:")
			fmt.Fprintf(out, "  quantlab backtest -c %s --data bars.csv\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "quantlab.yaml", "output config file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Long: `Check if a configuration file is valid and can be loaded.

Example:
  quantlab config validate -f quantlab.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			out := cmd.OutOrStdout()
			bt := cfg.Backtest
			fmt.Fprintf(out, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(out, "  Capital: $%.2f (size %.0f%%, commission %.3f%%, slippage %.3f%%)\n",
				bt.InitialCapital, bt.PositionSize*100, bt.Commission*100, bt.Slippage*100)
			fmt.Fprintf(out, "  Strategy: %s %v\n", cfg.Strategy.Kind, cfg.Strategy.Params)
			fmt.Fprintf(out, "  Short selling: %t\n", bt.AllowShort)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	validateCmd.MarkFlagRequired("file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Print the configuration after --config and QUANTLAB_* overrides are applied, as YAML.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.AddCommand(initCmd, validateCmd, showCmd)
	return cmd
}
