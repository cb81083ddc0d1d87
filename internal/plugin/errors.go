package plugin

import "fmt"

// PluginError reports a plugin that could not be loaded or that failed
// during setup or inside a hook.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

func (e *PluginError) Error() string {
	msg := fmt.Sprintf("plugin %q: %s", e.Plugin, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

func pluginErr(plugin, msgFmt string, args ...any) *PluginError {
	return &PluginError{Plugin: plugin, Message: fmt.Sprintf(msgFmt, args...)}
}

func wrapPluginErr(plugin string, err error, msgFmt string, args ...any) *PluginError {
	return &PluginError{Plugin: plugin, Message: fmt.Sprintf(msgFmt, args...), Err: err}
}
