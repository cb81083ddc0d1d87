package chain

import (
	"context"
	"fmt"
	"strings"

	"httpcraft/internal/config"
	"httpcraft/internal/httpclient"
	"httpcraft/internal/plugin"
	"httpcraft/internal/template"
	"httpcraft/pkg/logging"
)

// StepResult records one executed step.
type StepResult struct {
	ID       string
	Call     string
	Request  *httpclient.Request
	Response *httpclient.Response
	Success  bool
	Err      error
}

// Result is the outcome of a chain run. Final is the response of the last
// successful step and carries the chain's default output; it is nil when
// the chain failed before any step succeeded.
type Result struct {
	ChainName string
	Steps     []StepResult
	Final     *httpclient.Response
	Failed    bool
}

// Reporter receives chain progress for diagnostics. Implementations print
// to stderr with masking applied; the executor itself never prints.
type Reporter interface {
	OnChainStart(name string, steps int)
	OnStepStart(id, call string)
	OnStepRequest(id string, req *httpclient.Request, dryRun bool)
	OnStepResponse(id string, resp *httpclient.Response)
	OnStepError(id string, err error)
}

type nopReporter struct{}

func (nopReporter) OnChainStart(string, int) {}

func (nopReporter) OnStepStart(string, string) {}

func (nopReporter) OnStepRequest(string, *httpclient.Request, bool) {}

func (nopReporter) OnStepResponse(string, *httpclient.Response) {}

func (nopReporter) OnStepError(string, error) {}

// Options configures one chain run.
type Options struct {
	CLIVars  map[string]string
	Profile  map[string]any
	DryRun   bool
	Masker   *template.Masker
	Reporter Reporter
}

// Executor runs chains step by step, exposing each completed step's
// request and response to the templates of the steps after it.
type Executor struct {
	cfg     *config.Config
	client  *httpclient.Client
	plugins *plugin.Manager
	engine  *template.Engine
	opts    Options
}

// NewExecutor creates an executor over the loaded configuration. plugins
// is the global plugin manager; steps whose API declares plugin overrides
// derive API-scoped managers from it.
func NewExecutor(cfg *config.Config, client *httpclient.Client, plugins *plugin.Manager, opts Options) *Executor {
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	return &Executor{
		cfg:     cfg,
		client:  client,
		plugins: plugins,
		engine:  template.New(),
		opts:    opts,
	}
}

// Execute runs the named chain. Steps run in source order; the first
// failing step stops the chain and fails the run.
func (e *Executor) Execute(ctx context.Context, chainName string) (*Result, error) {
	chainDef, ok := e.cfg.Chains[chainName]
	if !ok {
		return nil, fmt.Errorf("chain %q is not defined in the configuration", chainName)
	}

	result := &Result{ChainName: chainName}
	e.opts.Reporter.OnChainStart(chainName, len(chainDef.Steps))

	prior := map[string]*template.StepState{}
	for _, step := range chainDef.Steps {
		stepResult := e.executeStep(ctx, chainDef, step, prior)
		result.Steps = append(result.Steps, stepResult)

		if !stepResult.Success {
			result.Failed = true
			e.opts.Reporter.OnStepError(step.ID, stepResult.Err)
			return result, fmt.Errorf("step %q: %w", step.ID, stepResult.Err)
		}

		result.Final = stepResult.Response
		prior[step.ID] = stepState(stepResult)
	}
	return result, nil
}

func (e *Executor) executeStep(ctx context.Context, chainDef config.ChainDefinition, step config.ChainStep, prior map[string]*template.StepState) StepResult {
	result := StepResult{ID: step.ID, Call: step.Call}
	e.opts.Reporter.OnStepStart(step.ID, step.Call)

	apiName, endpointName, _ := strings.Cut(step.Call, ".")
	api, ok := e.cfg.APIs[apiName]
	if !ok {
		result.Err = fmt.Errorf("api %q is not defined", apiName)
		return result
	}
	endpoint, ok := api.Endpoints[endpointName]
	if !ok {
		result.Err = fmt.Errorf("api %q has no endpoint %q", apiName, endpointName)
		return result
	}

	vars := &template.Context{
		CLI:      e.opts.CLIVars,
		Endpoint: endpoint.Variables,
		API:      api.Variables,
		Chain:    chainDef.Vars,
		Profile:  e.opts.Profile,
		Global:   e.cfg.GlobalVariables,
		Plugins:  e.plugins,
		Steps:    prior,
		Masker:   e.opts.Masker,
	}

	hooks := httpclient.HookSource(e.plugins)
	if len(api.Plugins) > 0 {
		apiManager, err := e.plugins.ForAPI(ctx, api.Plugins, vars)
		if err != nil {
			result.Err = err
			return result
		}
		vars.Plugins = apiManager
		hooks = apiManager
	}

	overrides, err := e.resolveOverrides(ctx, step.With, vars)
	if err != nil {
		result.Err = err
		return result
	}
	vars.StepWith = overrides.pathParams

	req, err := e.buildRequest(ctx, api, endpoint, overrides, vars)
	if err != nil {
		result.Err = err
		return result
	}
	result.Request = req
	e.opts.Reporter.OnStepRequest(step.ID, req, e.opts.DryRun)

	if e.opts.DryRun {
		result.Response = dryRunResponse()
		result.Success = true
		return result
	}

	e.client.SetHooks(hooks)
	resp, err := e.client.Execute(ctx, req)
	if err != nil {
		result.Err = err
		return result
	}
	result.Response = resp
	e.opts.Reporter.OnStepResponse(step.ID, resp)

	if resp.Status >= 400 {
		result.Err = &httpclient.StatusError{Status: resp.Status, StatusText: resp.StatusText}
		return result
	}

	result.Success = true
	logging.Debug("ChainExecutor", "step %s completed with status %d", step.ID, resp.Status)
	return result
}

// stepOverrides is step.with after template resolution.
type stepOverrides struct {
	pathParams map[string]string
	headers    map[string]string
	params     map[string]string
	body       any
	hasBody    bool
}

// resolveOverrides resolves step.with against the step context before
// path parameters are injected. Optional placeholders may drop header and
// param entries; path parameters resolve strictly.
func (e *Executor) resolveOverrides(ctx context.Context, with *config.StepOverrides, vars *template.Context) (stepOverrides, error) {
	var overrides stepOverrides
	if with == nil {
		return overrides, nil
	}

	if len(with.PathParams) > 0 {
		overrides.pathParams = make(map[string]string, len(with.PathParams))
		for name, value := range with.PathParams {
			resolved, err := e.engine.ResolveValue(ctx, value, vars)
			if err != nil {
				return overrides, fmt.Errorf("with.pathParams.%s: %w", name, err)
			}
			overrides.pathParams[name] = template.Stringify(resolved)
		}
	}

	var err error
	if overrides.headers, _, err = e.engine.ResolveWithOptional(ctx, with.Headers, vars); err != nil {
		return overrides, fmt.Errorf("with.headers: %w", err)
	}
	if overrides.params, _, err = e.engine.ResolveWithOptional(ctx, with.Params, vars); err != nil {
		return overrides, fmt.Errorf("with.params: %w", err)
	}

	if with.Body != nil {
		body, err := e.engine.ResolveValue(ctx, with.Body, vars)
		if err != nil {
			return overrides, fmt.Errorf("with.body: %w", err)
		}
		overrides.body = body
		overrides.hasBody = true
	}
	return overrides, nil
}

// buildRequest resolves the API and endpoint definitions against vars and
// assembles the outgoing request, applying the step overrides last.
func (e *Executor) buildRequest(ctx context.Context, api config.APIDefinition, endpoint config.EndpointDefinition, overrides stepOverrides, vars *template.Context) (*httpclient.Request, error) {
	baseURL, err := e.engine.Resolve(ctx, api.BaseURL, vars)
	if err != nil {
		return nil, fmt.Errorf("baseUrl: %w", err)
	}
	path, err := e.engine.Resolve(ctx, endpoint.Path, vars)
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}

	apiHeaders, _, err := e.engine.ResolveWithOptional(ctx, api.Headers, vars)
	if err != nil {
		return nil, fmt.Errorf("api headers: %w", err)
	}
	apiParams, _, err := e.engine.ResolveWithOptional(ctx, api.Params, vars)
	if err != nil {
		return nil, fmt.Errorf("api params: %w", err)
	}
	epHeaders, _, err := e.engine.ResolveWithOptional(ctx, endpoint.Headers, vars)
	if err != nil {
		return nil, fmt.Errorf("endpoint headers: %w", err)
	}
	epParams, _, err := e.engine.ResolveWithOptional(ctx, endpoint.Params, vars)
	if err != nil {
		return nil, fmt.Errorf("endpoint params: %w", err)
	}

	body := any(nil)
	if overrides.hasBody {
		body = overrides.body
	} else if endpoint.Body != nil {
		body, err = e.engine.ResolveValue(ctx, endpoint.Body, vars)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
	}

	url := httpclient.BuildURL(baseURL, path)
	params := httpclient.MergeStringMaps(apiParams, epParams, overrides.params)

	// Second pass: values resolved from variables may themselves contain
	// {{name}} occurrences that only step.with.pathParams can fill.
	for name, value := range overrides.pathParams {
		needle := "{{" + name + "}}"
		url = strings.ReplaceAll(url, needle, value)
		for key, paramValue := range params {
			params[key] = strings.ReplaceAll(paramValue, needle, value)
		}
	}

	return &httpclient.Request{
		Method:  strings.ToUpper(endpoint.Method),
		URL:     httpclient.AppendQuery(url, params),
		Headers: httpclient.MergeStringMaps(apiHeaders, epHeaders, overrides.headers),
		Body:    body,
	}, nil
}

// dryRunResponse is the synthetic response recorded instead of sending.
// The body is an empty JSON object so later steps can still reference the
// step's status and body fields.
func dryRunResponse() *httpclient.Response {
	return &httpclient.Response{
		Status:     200,
		StatusText: "OK (DRY RUN)",
		Headers:    map[string]string{},
		Body:       []byte("{}"),
		Text:       "{}",
	}
}

// stepState converts a completed step for template access by later steps.
func stepState(result StepResult) *template.StepState {
	state := &template.StepState{
		Request: template.StepRequest{
			Method:  result.Request.Method,
			URL:     result.Request.URL,
			Headers: result.Request.Headers,
			Body:    result.Request.Body,
		},
	}
	if result.Response != nil {
		bodyText := result.Response.Text
		if result.Response.IsBinary {
			bodyText = string(result.Response.Body)
		}
		state.Response = template.StepResponse{
			Status:     result.Response.Status,
			StatusText: result.Response.StatusText,
			Headers:    result.Response.Headers,
			Body:       bodyText,
		}
	}
	return state
}
