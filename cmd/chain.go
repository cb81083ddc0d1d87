package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"httpcraft/internal/app"
	"httpcraft/internal/cli"
)

var flagChainOutput string

var chainCmd = &cobra.Command{
	Use:   "chain <name>",
	Short: "Execute a request chain from the configuration",
	Long: `Execute the named chain step by step. Step responses are exposed to
later steps as {{steps.<id>.*}} variables.

By default only the final step's body is printed. With --chain-output
full a JSON document describing every step's request and response is
printed instead, including failed runs.`,
	Args: cobra.ExactArgs(1),
	RunE: runChain,
}

func init() {
	chainCmd.Flags().StringVar(&flagChainOutput, "chain-output", "default", "Chain output mode: default (final step body) or full (all steps as JSON)")
	rootCmd.AddCommand(chainCmd)
}

func runChain(cmd *cobra.Command, args []string) error {
	if flagChainOutput != "default" && flagChainOutput != "full" {
		return fmt.Errorf("invalid --chain-output %q: expected default or full", flagChainOutput)
	}

	opts, err := appOptions(cmd)
	if err != nil {
		return err
	}
	a, err := app.New(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := a.Chain(cmd.Context(), args[0])
	if result != nil && flagChainOutput == "full" {
		if err := cli.WriteChainFull(cmd.OutOrStdout(), result, a.Masker); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if flagChainOutput == "default" && !flagDryRun {
		return cli.WriteChainDefault(cmd.OutOrStdout(), result, flagJSON)
	}
	return nil
}
