package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"httpcraft/internal/app"
	"httpcraft/internal/cli"
	"httpcraft/internal/httpclient"
)

// runRoot executes the positional <api> <endpoint> form. The hidden name
// helpers are served first so the completion script can probe any
// configuration without side effects.
func runRoot(cmd *cobra.Command, args []string) error {
	if nameHelperRequested() {
		runNameHelpers(cmd)
		return nil
	}
	if len(args) == 0 {
		return cmd.Help()
	}
	if len(args) != 2 {
		return fmt.Errorf("expected <api> <endpoint>, got %d argument(s)", len(args))
	}

	var patterns []cli.StatusPattern
	if flagExitOnHTTPError != "" {
		var err error
		if patterns, err = cli.ParseStatusPatterns(flagExitOnHTTPError); err != nil {
			return err
		}
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

	resp, err := a.Request(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}

	if err := cli.WriteResponse(cmd.OutOrStdout(), resp, flagJSON); err != nil {
		return err
	}
	if cli.AnyStatusMatch(patterns, resp.Status) {
		return &httpclient.StatusError{Status: resp.Status, StatusText: resp.StatusText}
	}
	return nil
}

// appOptions assembles the bootstrap options for commands that execute
// requests.
func appOptions(cmd *cobra.Command) (app.Options, error) {
	vars, err := parseVars(flagVars)
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		ConfigPath:       flagConfig,
		Vars:             vars,
		Profiles:         flagProfiles,
		NoDefaultProfile: flagNoDefaultProfile,
		Verbose:          flagVerbose,
		DryRun:           flagDryRun,
		Masker:           masker,
		Stderr:           cmd.ErrOrStderr(),
	}, nil
}

// parseVars splits repeated --var key=value flags.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q: expected key=value", pair)
		}
		vars[key] = value
	}
	return vars, nil
}
