// Package cmd wires the httpcraft command tree: direct requests on the
// root command, chains, configuration inspection, cache management, and
// the completion helpers.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"httpcraft/internal/app"
	"httpcraft/internal/cli"
	"httpcraft/internal/config"
	"httpcraft/internal/plugin"
	"httpcraft/internal/template"
	"httpcraft/pkg/logging"
)

// Exit codes. HTTP error statuses exit 0 unless --exit-on-http-error
// matches them.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

var (
	flagConfig           string
	flagVars             []string
	flagProfiles         []string
	flagNoDefaultProfile bool
	flagVerbose          bool
	flagDryRun           bool
	flagExitOnHTTPError  string
	flagJSON             bool

	flagGetAPINames      bool
	flagGetEndpointNames string
	flagGetChainNames    bool
	flagGetProfileNames  bool
)

// masker is shared by every subsystem of the invocation so that error
// output stays masked even when bootstrap fails halfway through.
var masker = template.NewMasker()

var rootCmd = &cobra.Command{
	Use:   "httpcraft <api> <endpoint>",
	Short: "A declarative HTTP client driven by YAML configuration",
	Long: `httpcraft executes HTTP requests declared in a YAML configuration:
named APIs with endpoints, variable profiles, request chains, and
plugins for authentication and custom variables.

Examples:
  httpcraft users get --var userId=42
  httpcraft users get --profile prod --json
  httpcraft chain signup --verbose
  httpcraft list endpoints users`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.SetMasker(masker.Mask)
		logging.InitForCLI(flagVerbose, cmd.ErrOrStderr())
	},
	RunE: runRoot,
}

// SetVersion injects the build version; called from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the command tree and returns the process exit code. Every
// error is reported as one masked line on stderr.
func Execute() int {
	rootCmd.SetVersionTemplate(`{{printf "httpcraft version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, masker.Mask(errorPrefix(err)+": "+err.Error()))
		return ExitCodeError
	}
	return ExitCodeSuccess
}

// errorPrefix classifies an error chain for the single stderr line the
// root prints.
func errorPrefix(err error) string {
	var configErr *config.ConfigError
	var resolutionErr *template.ResolutionError
	var pluginErr *plugin.PluginError
	switch {
	case errors.As(err, &resolutionErr):
		return "Variable Error"
	case errors.As(err, &configErr):
		return "Configuration Error"
	case errors.As(err, &pluginErr):
		return "Plugin Error"
	default:
		return "Error"
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Configuration file (default: ./.httpcraft.yaml, ./.httpcraft.yml, then $XDG_CONFIG_HOME/httpcraft/config.yaml)")
	pf.StringArrayVar(&flagVars, "var", nil, "Variable override key=value (repeatable, highest precedence)")
	pf.StringArrayVar(&flagProfiles, "profile", nil, "Profile to apply (repeatable, additive with config.defaultProfile)")
	pf.BoolVar(&flagNoDefaultProfile, "no-default-profile", false, "Skip the configuration's defaultProfile entries")
	pf.BoolVar(&flagVerbose, "verbose", false, "Print request and response diagnostics on stderr")
	pf.BoolVar(&flagDryRun, "dry-run", false, "Resolve and print the request without sending it")
	pf.BoolVar(&flagJSON, "json", false, "Structured JSON output")

	f := rootCmd.Flags()
	f.StringVar(&flagExitOnHTTPError, "exit-on-http-error", "", "Exit 1 when the response status matches (comma list of 4xx, 5xx, or exact codes)")

	f.BoolVar(&flagGetAPINames, "get-api-names", false, "")
	f.StringVar(&flagGetEndpointNames, "get-endpoint-names", "", "")
	f.BoolVar(&flagGetChainNames, "get-chain-names", false, "")
	f.BoolVar(&flagGetProfileNames, "get-profile-names", false, "")
	for _, name := range []string{"get-api-names", "get-endpoint-names", "get-chain-names", "get-profile-names"} {
		_ = f.MarkHidden(name)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newVersionCmd())
}

func nameHelperRequested() bool {
	return flagGetAPINames || flagGetEndpointNames != "" || flagGetChainNames || flagGetProfileNames
}

// runNameHelpers serves the hidden completion flags. The completion
// script must never see a failure: any error produces empty output and
// exit 0.
func runNameHelpers(cmd *cobra.Command) {
	cfg, err := app.LoadConfig(flagConfig)
	if err != nil {
		return
	}
	out := cmd.OutOrStdout()
	switch {
	case flagGetAPINames:
		cli.WriteNames(out, cli.APINames(cfg))
	case flagGetEndpointNames != "":
		cli.WriteNames(out, cli.EndpointNames(cfg, flagGetEndpointNames))
	case flagGetChainNames:
		cli.WriteNames(out, cli.ChainNames(cfg))
	case flagGetProfileNames:
		cli.WriteNames(out, cli.ProfileNames(cfg))
	}
}
