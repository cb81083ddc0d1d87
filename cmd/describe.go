package cmd

import (
	"github.com/spf13/cobra"

	"httpcraft/internal/app"
	"httpcraft/internal/cli"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the full definition of an api, endpoint, profile, or chain",
}

func init() {
	describeCmd.AddCommand(
		&cobra.Command{
			Use:   "api <name>",
			Short: "Describe one API",
			Args:  cobra.ExactArgs(1),
			RunE:  runDescribeAPI,
		},
		&cobra.Command{
			Use:   "endpoint <api> <endpoint>",
			Short: "Describe one endpoint",
			Args:  cobra.ExactArgs(2),
			RunE:  runDescribeEndpoint,
		},
		&cobra.Command{
			Use:   "profile <name>",
			Short: "Describe one profile",
			Args:  cobra.ExactArgs(1),
			RunE:  runDescribeProfile,
		},
		&cobra.Command{
			Use:   "chain <name>",
			Short: "Describe one chain",
			Args:  cobra.ExactArgs(1),
			RunE:  runDescribeChain,
		},
	)
	rootCmd.AddCommand(describeCmd)
}

func runDescribeAPI(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.DescribeAPI(cmd.OutOrStdout(), cfg, args[0], flagJSON)
}

func runDescribeEndpoint(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.DescribeEndpoint(cmd.OutOrStdout(), cfg, args[0], args[1], flagJSON)
}

func runDescribeProfile(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.DescribeProfile(cmd.OutOrStdout(), cfg, args[0], flagJSON)
}

func runDescribeChain(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	return cli.DescribeChain(cmd.OutOrStdout(), cfg, args[0], flagJSON)
}
