package oauth2

import "fmt"

// AuthError reports a failed token acquisition. Op names the phase that
// failed (token request, authorize, callback). Messages never contain
// token material.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("oauth2 %s: %s", e.Op, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authErr(op, msgFmt string, args ...any) *AuthError {
	return &AuthError{Op: op, Message: fmt.Sprintf(msgFmt, args...)}
}
