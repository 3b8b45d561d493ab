package core

import (
	"fmt"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

// DefaultTop is the page size used when a caller does not ask for one.
const DefaultTop = 100

// Config configures the core toolkit.
type Config struct {
	// DefaultTop bounds list results when the caller passes no top.
	DefaultTop int

	// Descriptions overrides tool descriptions by tool name.
	Descriptions map[string]string
}

// ParseConfig parses a core toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	top, err := toolkit.GetInt(cfg, "default_top", DefaultTop)
	if err != nil {
		return Config{}, err
	}
	if top <= 0 {
		return Config{}, fmt.Errorf("default_top must be positive, got %d", top)
	}
	return Config{
		DefaultTop:   top,
		Descriptions: toolkit.GetStringMap(cfg, "descriptions"),
	}, nil
}
