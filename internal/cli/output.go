// Package cli renders httpcraft's two output surfaces: response bodies on
// stdout and masked diagnostics on stderr.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"httpcraft/internal/httpclient"
)

// TimingView is the timing block of the JSON response document.
type TimingView struct {
	Duration  int64     `json:"duration"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// ResponseView is the JSON-mode response document. Data holds the parsed
// body when it is JSON, the decoded text otherwise, and a placeholder for
// binary payloads.
type ResponseView struct {
	Status        int               `json:"status"`
	StatusText    string            `json:"statusText"`
	Headers       map[string]string `json:"headers"`
	Timing        TimingView        `json:"timing"`
	Data          any               `json:"data"`
	IsBinary      bool              `json:"isBinary"`
	ContentType   string            `json:"contentType"`
	ContentLength int64             `json:"contentLength"`
}

// NewResponseView builds the JSON document for one response.
func NewResponseView(resp *httpclient.Response) ResponseView {
	view := ResponseView{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers,
		Timing: TimingView{
			Duration:  resp.Duration.Milliseconds(),
			StartTime: resp.StartTime,
			EndTime:   resp.EndTime,
		},
		IsBinary:      resp.IsBinary,
		ContentType:   resp.ContentType,
		ContentLength: resp.ContentLength,
	}
	view.Data = responseData(resp)
	return view
}

func responseData(resp *httpclient.Response) any {
	if resp.IsBinary {
		return fmt.Sprintf("<binary data: %d bytes>", len(resp.Body))
	}
	var parsed any
	if err := json.Unmarshal([]byte(resp.Text), &parsed); err == nil {
		return parsed
	}
	return resp.Text
}

// WriteResponse writes the response to w: the bare body by default, the
// full JSON document with --json. Binary bodies pass through as raw bytes
// in default mode.
func WriteResponse(w io.Writer, resp *httpclient.Response, asJSON bool) error {
	if asJSON {
		return WriteJSON(w, NewResponseView(resp))
	}
	if resp.IsBinary {
		_, err := w.Write(resp.Body)
		return err
	}
	if resp.Text == "" {
		return nil
	}
	if _, err := io.WriteString(w, resp.Text); err != nil {
		return err
	}
	if !strings.HasSuffix(resp.Text, "\n") {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// WriteJSON marshals data with two-space indentation and a trailing
// newline.
func WriteJSON(w io.Writer, data any) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting as JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
