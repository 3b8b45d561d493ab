package registry

import (
	"fmt"
	"log/slog"
)

// LoaderConfig holds configuration for loading toolkits.
type LoaderConfig struct {
	// Domains selects which toolkits are created.
	Domains DomainSet

	// Toolkits carries optional per-domain settings keyed by domain.
	Toolkits map[string]map[string]any
}

// Loader loads toolkits from configuration.
type Loader struct {
	registry *Registry
}

// NewLoader creates a new toolkit loader.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load creates one toolkit per enabled domain. An empty domain set loads
// every domain.
func (l *Loader) Load(cfg LoaderConfig) error {
	domains := cfg.Domains
	if domains.Len() == 0 {
		domains = AllDomains()
	}

	for _, d := range domains.List() {
		kind := string(d)
		toolkitCfg := ToolkitConfig{
			Kind:   kind,
			Name:   kind,
			Config: cfg.Toolkits[kind],
		}
		if err := l.registry.CreateAndRegister(toolkitCfg); err != nil {
			return fmt.Errorf("loading toolkit %s: %w", kind, err)
		}
	}

	for kind := range cfg.Toolkits {
		if !domains.Contains(Domain(kind)) {
			slog.Debug("toolkit settings ignored for disabled domain", "domain", kind)
		}
	}
	return nil
}
