package window

import "fmt"

// ConfigurationError reports an invalid argument detected before any
// backend command is sent.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v", e.Field, e.Value)
}
