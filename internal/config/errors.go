package config

import "fmt"

// ConfigError reports an invalid configuration value. It is fatal to the
// invocation that received it and is returned before any pixel work starts.
type ConfigError struct {
	Context string
	Field   string
	Value   interface{}
	Reason  string
}

func (ce *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid %s value %v - %s", ce.Context, ce.Field, ce.Value, ce.Reason)
}
