package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"httpcraft/internal/app"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration, including variable files and imports, and run
the structural checks. Templated values are not resolved; only the
declarations themselves are validated.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s (%d apis, %d chains, %d profiles)\n",
		cfg.Path, len(cfg.APIs), len(cfg.Chains), len(cfg.Profiles))
	return nil
}
