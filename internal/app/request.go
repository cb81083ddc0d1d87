package app

import (
	"context"
	"fmt"
	"strings"

	"httpcraft/internal/chain"
	"httpcraft/internal/cli"
	"httpcraft/internal/config"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/template"
)

// Request resolves and executes one <api> <endpoint> call. In dry-run
// mode the request is printed to stderr and the response is nil.
func (a *App) Request(ctx context.Context, apiName, endpointName string) (*httpclient.Response, error) {
	api, ok := a.Config.APIs[apiName]
	if !ok {
		return nil, fmt.Errorf("api %q is not defined in the configuration", apiName)
	}
	endpoint, ok := api.Endpoints[endpointName]
	if !ok {
		return nil, fmt.Errorf("api %q has no endpoint %q", apiName, endpointName)
	}

	vars := a.varContext(endpoint.Variables, api.Variables)

	hooks := httpclient.HookSource(a.Plugins)
	if len(api.Plugins) > 0 {
		apiManager, err := a.Plugins.ForAPI(ctx, api.Plugins, vars)
		if err != nil {
			return nil, err
		}
		vars.Plugins = apiManager
		hooks = apiManager
	}

	req, err := a.buildRequest(ctx, api, endpoint, vars)
	if err != nil {
		return nil, err
	}

	if a.opts.DryRun {
		a.Printer.DryRun(req)
		return nil, nil
	}

	a.Client.SetHooks(hooks)
	return a.Client.Execute(ctx, req)
}

// buildRequest resolves the API and endpoint definitions against vars
// and assembles the outgoing request.
func (a *App) buildRequest(ctx context.Context, api config.APIDefinition, endpoint config.EndpointDefinition, vars *template.Context) (*httpclient.Request, error) {
	baseURL, err := a.engine.Resolve(ctx, api.BaseURL, vars)
	if err != nil {
		return nil, fmt.Errorf("baseUrl: %w", err)
	}
	path, err := a.engine.Resolve(ctx, endpoint.Path, vars)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}

	apiHeaders, _, err := a.engine.ResolveWithOptional(ctx, api.Headers, vars)
	if err != nil {
		return nil, fmt.Errorf("api headers: %w", err)
	}
	apiParams, _, err := a.engine.ResolveWithOptional(ctx, api.Params, vars)
	if err != nil {
		return nil, fmt.Errorf("api params: %w", err)
	}
	epHeaders, _, err := a.engine.ResolveWithOptional(ctx, endpoint.Headers, vars)
	if err != nil {
		return nil, fmt.Errorf("endpoint headers: %w", err)
	}
	epParams, _, err := a.engine.ResolveWithOptional(ctx, endpoint.Params, vars)
	if err != nil {
		return nil, fmt.Errorf("endpoint params: %w", err)
	}

	body := any(nil)
	if endpoint.Body != nil {
		body, err = a.engine.ResolveValue(ctx, endpoint.Body, vars)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
	}

	url := httpclient.BuildURL(baseURL, path)
	params := httpclient.MergeStringMaps(apiParams, epParams)

	return &httpclient.Request{
		Method:  strings.ToUpper(endpoint.Method),
		URL:     httpclient.AppendQuery(url, params),
		Headers: httpclient.MergeStringMaps(apiHeaders, epHeaders),
		Body:    body,
	}, nil
}

// Chain executes the named chain with this invocation's flags and
// reports progress through the printer.
func (a *App) Chain(ctx context.Context, name string) (*chain.Result, error) {
	executor := chain.NewExecutor(a.Config, a.Client, a.Plugins, chain.Options{
		CLIVars:  a.opts.Vars,
		Profile:  a.profile,
		DryRun:   a.opts.DryRun,
		Masker:   a.Masker,
		Reporter: &cli.ChainReporter{Printer: a.Printer},
	})
	return executor.Execute(ctx, name)
}
