package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"httpcraft/internal/cache"
	"httpcraft/internal/config"
	"httpcraft/internal/template"
)

// newTable creates a table writer in the rounded style, downgraded to
// plain ASCII when NO_COLOR is set or the output is not a terminal.
func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if plainOutput(out) {
		t.SetStyle(table.StyleDefault)
	} else {
		t.SetStyle(table.StyleRounded)
	}
	return t
}

func plainOutput(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return true
	}
	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	return !term.IsTerminal(int(f.Fd()))
}

type apiListItem struct {
	Name        string `json:"name"`
	BaseURL     string `json:"baseUrl"`
	Endpoints   int    `json:"endpoints"`
	Description string `json:"description,omitempty"`
}

// WriteAPIList lists the configured APIs.
func WriteAPIList(w io.Writer, cfg *config.Config, asJSON bool) error {
	items := make([]apiListItem, 0, len(cfg.APIs))
	for _, name := range APINames(cfg) {
		api := cfg.APIs[name]
		items = append(items, apiListItem{
			Name:        name,
			BaseURL:     api.BaseURL,
			Endpoints:   len(api.Endpoints),
			Description: api.Description,
		})
	}
	if asJSON {
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No apis defined")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAME", "BASE URL", "ENDPOINTS"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Name, item.BaseURL, item.Endpoints})
	}
	t.Render()
	return nil
}

type endpointListItem struct {
	API         string `json:"api,omitempty"`
	Name        string `json:"name"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
}

func endpointItems(api config.APIDefinition) []endpointListItem {
	names := make([]string, 0, len(api.Endpoints))
	for name := range api.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]endpointListItem, 0, len(names))
	for _, name := range names {
		ep := api.Endpoints[name]
		items = append(items, endpointListItem{
			Name:        name,
			Method:      ep.Method,
			Path:        ep.Path,
			Description: ep.Description,
		})
	}
	return items
}

// WriteEndpointList lists the endpoints of one API, or of every API when
// apiName is empty.
func WriteEndpointList(w io.Writer, cfg *config.Config, apiName string, asJSON bool) error {
	var items []endpointListItem
	if apiName == "" {
		for _, name := range APINames(cfg) {
			for _, item := range endpointItems(cfg.APIs[name]) {
				item.API = name
				items = append(items, item)
			}
		}
	} else {
		api, ok := cfg.APIs[apiName]
		if !ok {
			return fmt.Errorf("api %q is not defined in the configuration", apiName)
		}
		items = endpointItems(api)
	}
	if asJSON {
		if items == nil {
			items = []endpointListItem{}
		}
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		if apiName == "" {
			fmt.Fprintln(w, "No endpoints defined")
		} else {
			fmt.Fprintf(w, "No endpoints defined for api %s\n", apiName)
		}
		return nil
	}
	t := newTable(w)
	if apiName == "" {
		t.AppendHeader(table.Row{"API", "NAME", "METHOD", "PATH"})
		for _, item := range items {
			t.AppendRow(table.Row{item.API, item.Name, item.Method, item.Path})
		}
	} else {
		t.AppendHeader(table.Row{"NAME", "METHOD", "PATH"})
		for _, item := range items {
			t.AppendRow(table.Row{item.Name, item.Method, item.Path})
		}
	}
	t.Render()
	return nil
}

type profileListItem struct {
	Name        string `json:"name"`
	Default     bool   `json:"default"`
	Variables   int    `json:"variables"`
	Description string `json:"description,omitempty"`
}

// WriteProfileList lists the configured profiles, marking the ones the
// configuration applies by default.
func WriteProfileList(w io.Writer, cfg *config.Config, asJSON bool) error {
	defaults := cfg.Settings.DefaultProfile.Values()
	items := make([]profileListItem, 0, len(cfg.Profiles))
	for _, name := range ProfileNames(cfg) {
		profile := cfg.Profiles[name]
		items = append(items, profileListItem{
			Name:        name,
			Default:     slices.Contains(defaults, name),
			Variables:   len(profile.Variables()),
			Description: profile.Description(),
		})
	}
	if asJSON {
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No profiles defined")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAME", "DEFAULT", "VARIABLES", "DESCRIPTION"})
	for _, item := range items {
		mark := ""
		if item.Default {
			mark = "*"
		}
		t.AppendRow(table.Row{item.Name, mark, item.Variables, item.Description})
	}
	t.Render()
	return nil
}

type chainListItem struct {
	Name        string `json:"name"`
	Steps       int    `json:"steps"`
	Description string `json:"description,omitempty"`
}

// WriteChainList lists the configured chains.
func WriteChainList(w io.Writer, cfg *config.Config, asJSON bool) error {
	items := make([]chainListItem, 0, len(cfg.Chains))
	for _, name := range ChainNames(cfg) {
		chainDef := cfg.Chains[name]
		items = append(items, chainListItem{
			Name:        name,
			Steps:       len(chainDef.Steps),
			Description: chainDef.Description,
		})
	}
	if asJSON {
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No chains defined")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAME", "STEPS", "DESCRIPTION"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Name, item.Steps, item.Description})
	}
	t.Render()
	return nil
}

type variableListItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// WriteVariableList lists the global variables with their raw configured
// values; templates stay unresolved here.
func WriteVariableList(w io.Writer, cfg *config.Config, asJSON bool) error {
	names := make([]string, 0, len(cfg.GlobalVariables))
	for name := range cfg.GlobalVariables {
		names = append(names, name)
	}
	sort.Strings(names)

	items := make([]variableListItem, 0, len(names))
	for _, name := range names {
		items = append(items, variableListItem{Name: name, Value: template.Stringify(cfg.GlobalVariables[name])})
	}
	if asJSON {
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No global variables defined")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAME", "VALUE"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Name, item.Value})
	}
	t.Render()
	return nil
}

// APIView is the describe document for one API.
type APIView struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	BaseURL     string             `json:"baseUrl"`
	Headers     map[string]any     `json:"headers,omitempty"`
	Params      map[string]any     `json:"params,omitempty"`
	Variables   map[string]any     `json:"variables,omitempty"`
	Plugins     []string           `json:"plugins,omitempty"`
	Endpoints   []endpointListItem `json:"endpoints"`
}

// DescribeAPI writes one API's full definition.
func DescribeAPI(w io.Writer, cfg *config.Config, name string, asJSON bool) error {
	api, ok := cfg.APIs[name]
	if !ok {
		return fmt.Errorf("api %q is not defined in the configuration", name)
	}

	plugins := make([]string, 0, len(api.Plugins))
	for _, ref := range api.Plugins {
		plugins = append(plugins, ref.Name)
	}
	view := APIView{
		Name:        name,
		Description: api.Description,
		BaseURL:     api.BaseURL,
		Headers:     api.Headers,
		Params:      api.Params,
		Variables:   api.Variables,
		Plugins:     plugins,
		Endpoints:   endpointItems(api),
	}
	if asJSON {
		return WriteJSON(w, view)
	}

	endpoints := make([]string, 0, len(view.Endpoints))
	for _, ep := range view.Endpoints {
		endpoints = append(endpoints, fmt.Sprintf("%s %s %s", ep.Name, ep.Method, ep.Path))
	}
	renderDetails(w, detailRows{
		{"Name", view.Name},
		{"Description", view.Description},
		{"Base URL", view.BaseURL},
		{"Headers", mapLines(view.Headers)},
		{"Params", mapLines(view.Params)},
		{"Variables", mapLines(view.Variables)},
		{"Plugins", strings.Join(view.Plugins, ", ")},
		{"Endpoints", strings.Join(endpoints, "\n")},
	})
	return nil
}

// EndpointView is the describe document for one endpoint.
type EndpointView struct {
	API         string         `json:"api"`
	Name        string         `json:"name"`
	Method      string         `json:"method"`
	Path        string         `json:"path"`
	Description string         `json:"description,omitempty"`
	Headers     map[string]any `json:"headers,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	Body        any            `json:"body,omitempty"`
}

// DescribeEndpoint writes one endpoint's full definition.
func DescribeEndpoint(w io.Writer, cfg *config.Config, apiName, name string, asJSON bool) error {
	api, ok := cfg.APIs[apiName]
	if !ok {
		return fmt.Errorf("api %q is not defined in the configuration", apiName)
	}
	ep, ok := api.Endpoints[name]
	if !ok {
		return fmt.Errorf("api %q has no endpoint %q", apiName, name)
	}

	view := EndpointView{
		API:         apiName,
		Name:        name,
		Method:      ep.Method,
		Path:        ep.Path,
		Description: ep.Description,
		Headers:     ep.Headers,
		Params:      ep.Params,
		Variables:   ep.Variables,
		Body:        ep.Body,
	}
	if asJSON {
		return WriteJSON(w, view)
	}

	body := ""
	if ep.Body != nil {
		body = template.Stringify(ep.Body)
	}
	renderDetails(w, detailRows{
		{"API", view.API},
		{"Name", view.Name},
		{"Method", view.Method},
		{"Path", view.Path},
		{"Description", view.Description},
		{"Headers", mapLines(view.Headers)},
		{"Params", mapLines(view.Params)},
		{"Variables", mapLines(view.Variables)},
		{"Body", body},
	})
	return nil
}

// ProfileView is the describe document for one profile.
type ProfileView struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Default     bool           `json:"default"`
	Variables   map[string]any `json:"variables"`
}

// DescribeProfile writes one profile's variables.
func DescribeProfile(w io.Writer, cfg *config.Config, name string, asJSON bool) error {
	profile, ok := cfg.Profiles[name]
	if !ok {
		return fmt.Errorf("profile %q is not defined in the configuration", name)
	}

	view := ProfileView{
		Name:        name,
		Description: profile.Description(),
		Default:     slices.Contains(cfg.Settings.DefaultProfile.Values(), name),
		Variables:   profile.Variables(),
	}
	if asJSON {
		return WriteJSON(w, view)
	}

	isDefault := ""
	if view.Default {
		isDefault = "yes"
	}
	renderDetails(w, detailRows{
		{"Name", view.Name},
		{"Description", view.Description},
		{"Default", isDefault},
		{"Variables", mapLines(view.Variables)},
	})
	return nil
}

type chainStepItem struct {
	ID          string `json:"id"`
	Call        string `json:"call"`
	Description string `json:"description,omitempty"`
}

// ChainDetailView is the describe document for one chain.
type ChainDetailView struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Vars        map[string]any  `json:"vars,omitempty"`
	Steps       []chainStepItem `json:"steps"`
}

// DescribeChain writes one chain's steps and variables.
func DescribeChain(w io.Writer, cfg *config.Config, name string, asJSON bool) error {
	chainDef, ok := cfg.Chains[name]
	if !ok {
		return fmt.Errorf("chain %q is not defined in the configuration", name)
	}

	steps := make([]chainStepItem, 0, len(chainDef.Steps))
	for _, step := range chainDef.Steps {
		steps = append(steps, chainStepItem{ID: step.ID, Call: step.Call, Description: step.Description})
	}
	view := ChainDetailView{
		Name:        name,
		Description: chainDef.Description,
		Vars:        chainDef.Vars,
		Steps:       steps,
	}
	if asJSON {
		return WriteJSON(w, view)
	}

	stepLines := make([]string, 0, len(steps))
	for _, step := range steps {
		stepLines = append(stepLines, step.ID+" -> "+step.Call)
	}
	renderDetails(w, detailRows{
		{"Name", view.Name},
		{"Description", view.Description},
		{"Vars", mapLines(view.Vars)},
		{"Steps", strings.Join(stepLines, "\n")},
	})
	return nil
}

// WriteCacheStats writes per-namespace cache statistics.
func WriteCacheStats(w io.Writer, stats cache.Stats, asJSON bool) error {
	if asJSON {
		return WriteJSON(w, stats)
	}
	if len(stats.Namespaces) == 0 {
		fmt.Fprintln(w, "Cache is empty")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAMESPACE", "ENTRIES", "EXPIRED"})
	for _, ns := range stats.Namespaces {
		t.AppendRow(table.Row{ns.Name, ns.Entries, ns.Expired})
	}
	t.AppendFooter(table.Row{"TOTAL", stats.TotalEntries, stats.TotalExpired})
	t.Render()
	return nil
}

type cacheEntryItem struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

// WriteCacheEntries lists cache keys, optionally restricted to one
// namespace.
func WriteCacheEntries(w io.Writer, m *cache.Manager, namespace string, asJSON bool) error {
	namespaces := m.Namespaces()
	if namespace != "" {
		namespaces = []string{namespace}
	}

	var items []cacheEntryItem
	for _, ns := range namespaces {
		for _, key := range m.Keys(ns) {
			items = append(items, cacheEntryItem{Namespace: ns, Key: key})
		}
	}
	if asJSON {
		if items == nil {
			items = []cacheEntryItem{}
		}
		return WriteJSON(w, items)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "Cache is empty")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"NAMESPACE", "KEY"})
	for _, item := range items {
		t.AppendRow(table.Row{item.Namespace, item.Key})
	}
	t.Render()
	return nil
}

// detailRows is an ordered key/value listing; empty values are skipped.
type detailRows [][2]string

func renderDetails(w io.Writer, rows detailRows) {
	t := newTable(w)
	t.AppendHeader(table.Row{"KEY", "VALUE"})
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		t.AppendRow(table.Row{row[0], row[1]})
	}
	t.Render()
}

func mapLines(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+template.Stringify(m[k]))
	}
	return strings.Join(lines, "\n")
}

// APINames returns the configured API names, sorted.
func APINames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.APIs))
	for name := range cfg.APIs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EndpointNames returns the endpoint names of one API, sorted. An unknown
// API yields nil; completion helpers must not fail.
func EndpointNames(cfg *config.Config, apiName string) []string {
	api, ok := cfg.APIs[apiName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(api.Endpoints))
	for name := range api.Endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChainNames returns the configured chain names, sorted.
func ChainNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Chains))
	for name := range cfg.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileNames returns the configured profile names, sorted.
func ProfileNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Profiles))
	for name := range cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteNames writes one name per line, the format the completion script
// consumes.
func WriteNames(w io.Writer, names []string) {
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}
