package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"httpcraft/internal/httpclient"
	"httpcraft/internal/template"
)

// bodyPreviewLimit caps request and response bodies inside diagnostic
// blocks. stdout still carries the full payload.
const bodyPreviewLimit = 2048

// Printer writes diagnostic blocks to stderr. Every line passes the
// masker before it is written, so tracked secrets never surface.
type Printer struct {
	Out     io.Writer
	Masker  *template.Masker
	Verbose bool
}

func (p *Printer) emit(prefix, format string, args ...any) {
	line := prefix + fmt.Sprintf(format, args...)
	if p.Masker != nil {
		line = p.Masker.Mask(line)
	}
	fmt.Fprintln(p.Out, line)
}

// Verbosef prints one [VERBOSE] line when verbose mode is on.
func (p *Printer) Verbosef(format string, args ...any) {
	if !p.Verbose {
		return
	}
	p.emit("[VERBOSE] ", format, args...)
}

// DryRun prints the request that would have been sent. Dry-run output is
// not gated on verbose; it is the whole point of the run.
func (p *Printer) DryRun(req *httpclient.Request) {
	for _, line := range requestLines(req) {
		p.emit("[DRY RUN] ", "%s", line)
	}
}

// Trace returns request/response callbacks for verbose mode, nil
// otherwise.
func (p *Printer) Trace() *httpclient.Trace {
	if !p.Verbose {
		return nil
	}
	return &httpclient.Trace{
		OnRequest: func(req *httpclient.Request) {
			for _, line := range requestLines(req) {
				p.emit("[REQUEST] ", "%s", line)
			}
		},
		OnResponse: func(resp *httpclient.Response) {
			for _, line := range responseLines(resp) {
				p.emit("[RESPONSE] ", "%s", line)
			}
		},
	}
}

func requestLines(req *httpclient.Request) []string {
	lines := []string{req.Method + " " + req.URL}
	for _, name := range sortedKeys(req.Headers) {
		lines = append(lines, name+": "+req.Headers[name])
	}
	if preview, ok := bodyPreview(req.Body); ok {
		lines = append(lines, strings.Split(preview, "\n")...)
	}
	return lines
}

func responseLines(resp *httpclient.Response) []string {
	lines := []string{fmt.Sprintf("%d %s (%dms)", resp.Status, resp.StatusText, resp.Duration.Milliseconds())}
	for _, name := range sortedKeys(resp.Headers) {
		lines = append(lines, name+": "+resp.Headers[name])
	}
	if resp.IsBinary {
		lines = append(lines, fmt.Sprintf("<binary data: %d bytes>", len(resp.Body)))
	} else if preview, ok := bodyPreview(resp.Text); ok {
		lines = append(lines, strings.Split(preview, "\n")...)
	}
	return lines
}

func bodyPreview(body any) (string, bool) {
	if body == nil {
		return "", false
	}
	var text string
	switch b := body.(type) {
	case string:
		text = b
	case []byte:
		text = string(b)
	default:
		text = template.Stringify(body)
	}
	if text == "" {
		return "", false
	}
	if len(text) > bodyPreviewLimit {
		text = fmt.Sprintf("%s... (%d bytes total)", text[:bodyPreviewLimit], len(text))
	}
	return text, true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChainReporter adapts the printer to chain progress callbacks. Dry-run
// request blocks always print; everything else requires verbose mode.
type ChainReporter struct {
	Printer *Printer
}

func (r *ChainReporter) OnChainStart(name string, steps int) {
	if !r.Printer.Verbose {
		return
	}
	r.Printer.emit("[CHAIN] ", "%s (%d steps)", name, steps)
}

func (r *ChainReporter) OnStepStart(id, call string) {
	if !r.Printer.Verbose {
		return
	}
	r.Printer.emit(stepPrefix(id), "%s", call)
}

func (r *ChainReporter) OnStepRequest(id string, req *httpclient.Request, dryRun bool) {
	if dryRun {
		lines := requestLines(req)
		r.Printer.emit("[DRY RUN] ", "step %s: %s", id, lines[0])
		for _, line := range lines[1:] {
			r.Printer.emit("[DRY RUN] ", "%s", line)
		}
		return
	}
	if !r.Printer.Verbose {
		return
	}
	for _, line := range requestLines(req) {
		r.Printer.emit(stepPrefix(id), "%s", line)
	}
}

func (r *ChainReporter) OnStepResponse(id string, resp *httpclient.Response) {
	if !r.Printer.Verbose {
		return
	}
	for _, line := range responseLines(resp) {
		r.Printer.emit(stepPrefix(id), "%s", line)
	}
}

func (r *ChainReporter) OnStepError(id string, err error) {
	if !r.Printer.Verbose {
		return
	}
	r.Printer.emit(stepPrefix(id), "failed: %v", err)
}

func stepPrefix(id string) string {
	return "[STEP " + id + "] "
}
