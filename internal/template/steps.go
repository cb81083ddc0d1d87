package template

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StepRequest is the recorded request of a completed chain step.
type StepRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// StepResponse is the recorded response of a completed chain step.
type StepResponse struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       string
}

// StepState exposes one prior step to later steps as steps.<id>.*.
type StepState struct {
	Request  StepRequest
	Response StepResponse
}

// resolveStepPath handles steps.<id>.request... and steps.<id>.response...
// names. The full name is kept for error messages.
func (c *Context) resolveStepPath(name string) (string, error) {
	parts := strings.SplitN(name, ".", 4)
	if len(parts) < 3 {
		return "", resolutionErr(name, "step references use the form steps.<id>.<request|response>.<field>")
	}
	id, section := parts[1], parts[2]

	var state *StepState
	if c != nil {
		state = c.Steps[id]
	}
	if state == nil {
		return "", undefinedErr(name, "no completed step with id %q", id)
	}

	rest := ""
	if len(parts) == 4 {
		rest = parts[3]
	}

	switch section {
	case "request":
		return state.Request.lookup(name, rest)
	case "response":
		return state.Response.lookup(name, rest)
	default:
		return "", resolutionErr(name, "unknown step section %q (want request or response)", section)
	}
}

func (r StepRequest) lookup(fullName, rest string) (string, error) {
	switch {
	case rest == "url":
		return r.URL, nil
	case rest == "method":
		return r.Method, nil
	case strings.HasPrefix(rest, "headers."):
		return lookupHeader(fullName, r.Headers, strings.TrimPrefix(rest, "headers."))
	case rest == "body":
		if s, ok := r.Body.(string); ok {
			return s, nil
		}
		return stringify(r.Body), nil
	case strings.HasPrefix(rest, "body."):
		return queryBody(fullName, r.Body, strings.TrimPrefix(rest, "body."))
	default:
		return "", resolutionErr(fullName, "unknown request field %q", rest)
	}
}

func (r StepResponse) lookup(fullName, rest string) (string, error) {
	switch {
	case rest == "status":
		return strconv.Itoa(r.Status), nil
	case rest == "statusText":
		return r.StatusText, nil
	case strings.HasPrefix(rest, "headers."):
		return lookupHeader(fullName, r.Headers, strings.TrimPrefix(rest, "headers."))
	case rest == "body":
		return r.Body, nil
	case strings.HasPrefix(rest, "body."):
		var parsed any
		if err := json.Unmarshal([]byte(r.Body), &parsed); err != nil {
			return "", resolutionErr(fullName, "step response body is not valid JSON: %v", err)
		}
		return queryBody(fullName, parsed, strings.TrimPrefix(rest, "body."))
	default:
		return "", resolutionErr(fullName, "unknown response field %q", rest)
	}
}

// lookupHeader matches header names case-insensitively, as HTTP does.
func lookupHeader(fullName string, headers map[string]string, name string) (string, error) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, nil
		}
	}
	return "", undefinedErr(fullName, "header %q not present", name)
}

func queryBody(fullName string, body any, path string) (string, error) {
	value, found, err := evalBodyPath(body, path)
	if err != nil {
		return "", resolutionErr(fullName, "%v", err)
	}
	if !found {
		return "", undefinedErr(fullName, "body path %q matched nothing", path)
	}
	return stringify(value), nil
}
