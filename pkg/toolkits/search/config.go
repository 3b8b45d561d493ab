package search

import (
	"fmt"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit"
)

// DefaultMaxTop caps the page size a caller may request.
const DefaultMaxTop = 1000

// Config configures the search toolkit.
type Config struct {
	DefaultTop int
	MaxTop     int
}

// ParseConfig parses a search toolkit configuration from a map.
func ParseConfig(cfg map[string]any) (Config, error) {
	top, err := toolkit.GetInt(cfg, "default_top", devops.DefaultSearchTop)
	if err != nil {
		return Config{}, err
	}
	maxTop, err := toolkit.GetInt(cfg, "max_top", DefaultMaxTop)
	if err != nil {
		return Config{}, err
	}
	if top <= 0 || maxTop <= 0 {
		return Config{}, fmt.Errorf("default_top and max_top must be positive, got %d and %d", top, maxTop)
	}
	if top > maxTop {
		return Config{}, fmt.Errorf("default_top %d exceeds max_top %d", top, maxTop)
	}
	return Config{DefaultTop: top, MaxTop: maxTop}, nil
}
