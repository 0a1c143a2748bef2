package schema

import "fmt"

// ConfigurationError reports a monitored type that cannot be used for
// versioning: no primary key, an exclude list naming an unknown column,
// or a lookup for a type that was never registered. It is detected at
// setup time and never silently ignored.
type ConfigurationError struct {
	Type   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Type, e.Reason)
}
