package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"

	"httpcraft/pkg/logging"
)

// DefaultTimeout bounds a single request unless the context imposes a
// tighter deadline.
const DefaultTimeout = 30 * time.Second

// Request is the mutable outgoing request handed to pre-request hooks.
// Body may be nil, a string or byte slice sent verbatim, or any structured
// value, which is serialized as JSON.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// SetHeader sets a header, replacing any existing value under a
// case-insensitive match of the name.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	for existing := range r.Headers {
		if strings.EqualFold(existing, name) {
			delete(r.Headers, existing)
		}
	}
	r.Headers[name] = value
}

// Header returns the value of a header by case-insensitive name.
func (r *Request) Header(name string) (string, bool) {
	for existing, value := range r.Headers {
		if strings.EqualFold(existing, name) {
			return value, true
		}
	}
	return "", false
}

// Response is the completed exchange handed to post-response hooks and to
// output rendering. Body always holds the raw bytes; Text is the decoded
// form when the payload is not binary.
type Response struct {
	Status        int
	StatusText    string
	Headers       map[string]string
	Body          []byte
	Text          string
	IsBinary      bool
	ContentType   string
	ContentLength int64

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// PreRequestHook may mutate the outgoing request. An error aborts the
// request.
type PreRequestHook func(ctx context.Context, req *Request) error

// PostResponseHook may transform the received response. An error fails the
// surrounding operation.
type PostResponseHook func(ctx context.Context, resp *Response) error

// HookSource supplies ordered hooks, typically a plugin manager. Chains
// swap the source per step so API-scoped plugin instances apply.
type HookSource interface {
	PreRequestHooks() []PreRequestHook
	PostResponseHooks() []PostResponseHook
}

// Trace observes the exchange for diagnostics: OnRequest fires after
// pre-request hooks with the request that actually goes out, OnResponse
// after post-response hooks with the response the caller will see.
type Trace struct {
	OnRequest  func(*Request)
	OnResponse func(*Response)
}

// Client executes resolved requests. HTTP error statuses are returned as
// ordinary responses; only network-level failures produce errors.
type Client struct {
	httpClient *http.Client
	hooks      HookSource
	trace      *Trace
}

// New creates a client with the given timeout, defaulted when
// non-positive.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHooks installs the hook source used by subsequent requests.
func (c *Client) SetHooks(hooks HookSource) {
	c.hooks = hooks
}

// SetTrace installs diagnostic callbacks.
func (c *Client) SetTrace(trace *Trace) {
	c.trace = trace
}

// Execute runs pre-request hooks, sends the request, decodes the
// response, and runs post-response hooks.
func (c *Client) Execute(ctx context.Context, req *Request) (*Response, error) {
	if c.hooks != nil {
		for _, hook := range c.hooks.PreRequestHooks() {
			if err := hook(ctx, req); err != nil {
				return nil, fmt.Errorf("pre-request hook: %w", err)
			}
		}
	}
	if c.trace != nil && c.trace.OnRequest != nil {
		c.trace.OnRequest(req)
	}

	payload, impliedType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}
	if impliedType != "" {
		if _, set := req.Header("Content-Type"); !set {
			httpReq.Header.Set("Content-Type", impliedType)
		}
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(req.URL, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	end := time.Now()
	if err != nil {
		return nil, classifyTransportError(req.URL, err)
	}

	resp := buildResponse(httpResp, body)
	resp.StartTime = start
	resp.EndTime = end
	resp.Duration = end.Sub(start)

	if c.hooks != nil {
		for _, hook := range c.hooks.PostResponseHooks() {
			if err := hook(ctx, resp); err != nil {
				return nil, fmt.Errorf("post-response hook: %w", err)
			}
		}
	}
	if c.trace != nil && c.trace.OnResponse != nil {
		c.trace.OnResponse(resp)
	}

	logging.Debug("HTTPClient", "%s %s -> %d (%d bytes in %s)",
		req.Method, req.URL, resp.Status, len(resp.Body), resp.Duration.Round(time.Millisecond))
	return resp, nil
}

func buildResponse(httpResp *http.Response, body []byte) *Response {
	headers := make(map[string]string, len(httpResp.Header))
	for name, values := range httpResp.Header {
		headers[name] = strings.Join(values, ", ")
	}

	contentType := httpResp.Header.Get("Content-Type")
	disposition := httpResp.Header.Get("Content-Disposition")

	resp := &Response{
		Status:        httpResp.StatusCode,
		StatusText:    statusText(httpResp),
		Headers:       headers,
		Body:          body,
		IsBinary:      isBinaryContent(contentType, disposition, body),
		ContentType:   contentType,
		ContentLength: int64(len(body)),
	}
	if !resp.IsBinary {
		resp.Text = decodeText(body, contentType)
	}
	return resp
}

// statusText prefers the reason phrase the server sent over the standard
// one for the code.
func statusText(httpResp *http.Response) string {
	prefix := fmt.Sprintf("%d ", httpResp.StatusCode)
	if text, ok := strings.CutPrefix(httpResp.Status, prefix); ok && text != "" {
		return text
	}
	return http.StatusText(httpResp.StatusCode)
}

// encodeBody turns the request body into wire bytes. Structured values go
// through a YAML to JSON bridge so anything a YAML config can express
// serializes cleanly, and imply an application/json content type.
func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(b), "", nil
	case []byte:
		return b, "", nil
	default:
		intermediate, err := yaml.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		jsonBytes, err := sigsyaml.YAMLToJSON(intermediate)
		if err != nil {
			return nil, "", err
		}
		return jsonBytes, "application/json", nil
	}
}
