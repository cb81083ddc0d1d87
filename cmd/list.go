package cmd

import (
	"github.com/spf13/cobra"

	"httpcraft/internal/app"
	"httpcraft/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured apis, endpoints, profiles, variables, or chains",
}

func init() {
	listCmd.AddCommand(
		&cobra.Command{
			Use:   "apis",
			Short: "List the configured APIs",
			Args:  cobra.NoArgs,
			RunE:  runListAPIs,
		},
		&cobra.Command{
			Use:   "endpoints [api]",
			Short: "List endpoints, optionally restricted to one API",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runListEndpoints,
		},
		&cobra.Command{
			Use:   "profiles",
			Short: "List the configured profiles",
			Args:  cobra.NoArgs,
			RunE:  runListProfiles,
		},
		&cobra.Command{
			Use:   "variables",
			Short: "List the global variables",
			Args:  cobra.NoArgs,
			RunE:  runListVariables,
		},
		&cobra.Command{
			Use:   "chains",
			Short: "List the configured chains",
			Args:  cobra.NoArgs,
			RunE:  runListChains,
		},
	)
	rootCmd.AddCommand(listCmd)
}

func runListAPIs(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.WriteAPIList(cmd.OutOrStdout(), cfg, flagJSON)
}

func runListEndpoints(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	apiName := ""
	if len(args) == 1 {
		apiName = args[0]
	}
	return cli.WriteEndpointList(cmd.OutOrStdout(), cfg, apiName, flagJSON)
}

func runListProfiles(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.WriteProfileList(cmd.OutOrStdout(), cfg, flagJSON)
}

func runListVariables(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.WriteVariableList(cmd.OutOrStdout(), cfg, flagJSON)
}

func runListChains(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.WriteChainList(cmd.OutOrStdout(), cfg, flagJSON)
}
