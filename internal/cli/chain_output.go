package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"httpcraft/internal/chain"
	"httpcraft/internal/template"
)

// ChainStepRequestView is the request half of one step in full chain
// output.
type ChainStepRequestView struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// ChainStepResponseView is the response half of one step in full chain
// output.
type ChainStepResponseView struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`
}

// ChainStepView is one executed step in full chain output.
type ChainStepView struct {
	StepID   string                 `json:"stepId"`
	Success  bool                   `json:"success"`
	Request  *ChainStepRequestView  `json:"request,omitempty"`
	Response *ChainStepResponseView `json:"response,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// ChainRunView is the document printed by --chain-output full.
type ChainRunView struct {
	ChainName string          `json:"chainName"`
	Success   bool            `json:"success"`
	Steps     []ChainStepView `json:"steps"`
}

// NewChainRunView flattens a chain result into its output document.
func NewChainRunView(result *chain.Result) ChainRunView {
	view := ChainRunView{
		ChainName: result.ChainName,
		Success:   !result.Failed,
		Steps:     make([]ChainStepView, 0, len(result.Steps)),
	}
	for _, step := range result.Steps {
		sv := ChainStepView{StepID: step.ID, Success: step.Success}
		if step.Request != nil {
			sv.Request = &ChainStepRequestView{
				Method:  step.Request.Method,
				URL:     step.Request.URL,
				Headers: step.Request.Headers,
				Body:    step.Request.Body,
			}
		}
		if step.Response != nil {
			sv.Response = &ChainStepResponseView{
				Status:     step.Response.Status,
				StatusText: step.Response.StatusText,
				Headers:    step.Response.Headers,
				Body:       responseData(step.Response),
			}
		}
		if step.Err != nil {
			sv.Error = step.Err.Error()
		}
		view.Steps = append(view.Steps, sv)
	}
	return view
}

// WriteChainFull writes the full chain document, masked as a whole so
// tracked secrets cannot leak through step bodies or headers.
func WriteChainFull(w io.Writer, result *chain.Result, masker *template.Masker) error {
	raw, err := json.MarshalIndent(NewChainRunView(result), "", "  ")
	if err != nil {
		return fmt.Errorf("formatting chain result: %w", err)
	}
	out := string(raw)
	if masker != nil {
		out = masker.Mask(out)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// WriteChainDefault writes the default chain output: the body of the last
// successful step, or nothing when the chain failed.
func WriteChainDefault(w io.Writer, result *chain.Result, asJSON bool) error {
	if result.Failed || result.Final == nil {
		return nil
	}
	return WriteResponse(w, result.Final, asJSON)
}
