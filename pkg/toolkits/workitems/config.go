package workitems

import "github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"

// Config configures the work items toolkit.
type Config struct {
	// DefaultFields are requested when the caller names none. Empty means
	// every field.
	DefaultFields []string
}

// ParseConfig parses a work items toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	return Config{DefaultFields: toolkit.GetStringSlice(cfg, "default_fields")}, nil
}
