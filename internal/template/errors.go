package template

import "fmt"

// ResolutionError reports a variable that could not be resolved. Reason is
// human-readable and never contains a resolved secret value. Undefined marks
// plain "name not known" failures, which optional placeholders may swallow.
type ResolutionError struct {
	Name      string
	Reason    string
	Undefined bool
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve variable %q: %s", e.Name, e.Reason)
}

func undefinedErr(name, reasonFmt string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Name: name, Reason: fmt.Sprintf(reasonFmt, args...), Undefined: true}
}

func resolutionErr(name, reasonFmt string, args ...interface{}) *ResolutionError {
	return &ResolutionError{Name: name, Reason: fmt.Sprintf(reasonFmt, args...)}
}
