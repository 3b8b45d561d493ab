package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
)

// Registry manages toolkit registration and lifecycle.
type Registry struct {
	mu sync.RWMutex

	// Registered toolkits by kind+name
	toolkits map[string]Toolkit

	// Factory functions by kind
	factories map[string]ToolkitFactory

	// Organization clients handed to every toolkit the registry creates
	clients devops.ClientProvider
}

// NewRegistry creates a toolkit registry whose toolkits use clients.
func NewRegistry(clients devops.ClientProvider) *Registry {
	return &Registry{
		toolkits:  make(map[string]Toolkit),
		factories: make(map[string]ToolkitFactory),
		clients:   clients,
	}
}

// RegisterFactory registers a toolkit factory for a kind.
func (r *Registry) RegisterFactory(kind string, factory ToolkitFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Register adds a toolkit to the registry.
func (r *Registry) Register(toolkit Toolkit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := toolkitKey(toolkit.Kind(), toolkit.Name())
	if _, exists := r.toolkits[key]; exists {
		return fmt.Errorf("toolkit %s already registered", key)
	}

	r.toolkits[key] = toolkit
	return nil
}

// CreateAndRegister creates a toolkit from config and registers it.
func (r *Registry) CreateAndRegister(cfg ToolkitConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Kind]
	clients := r.clients
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown toolkit kind: %s", cfg.Kind)
	}

	toolkit, err := factory(cfg.Name, clients, cfg.Config)
	if err != nil {
		return fmt.Errorf("creating toolkit %s/%s: %w", cfg.Kind, cfg.Name, err)
	}

	return r.Register(toolkit)
}

// Get retrieves a toolkit by kind and name.
func (r *Registry) Get(kind, name string) (Toolkit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	toolkit, ok := r.toolkits[toolkitKey(kind, name)]
	return toolkit, ok
}

// All returns all registered toolkits ordered by key.
func (r *Registry) All() []Toolkit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.toolkits))
	for key := range r.toolkits {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	result := make([]Toolkit, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.toolkits[key])
	}
	return result
}

// AllTools returns all tool names from all toolkits.
func (r *Registry) AllTools() []string {
	toolkits := r.All()
	tools := make([]string, 0, len(toolkits)*2)
	for _, toolkit := range toolkits {
		tools = append(tools, toolkit.Tools()...)
	}
	return tools
}

// GetToolkitForTool returns the kind and name of the toolkit that provides
// toolName.
func (r *Registry) GetToolkitForTool(toolName string) (kind, name string, found bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, toolkit := range r.toolkits {
		if slices.Contains(toolkit.Tools(), toolName) {
			return toolkit.Kind(), toolkit.Name(), true
		}
	}
	return "", "", false
}

// RegisterAllTools registers all tools from all toolkits with the MCP server.
func (r *Registry) RegisterAllTools(s *mcp.Server) {
	for _, toolkit := range r.All() {
		toolkit.RegisterTools(s)
	}
}

// Close closes all registered toolkits.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, toolkit := range r.toolkits {
		if err := toolkit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func toolkitKey(kind, name string) string {
	return kind + ":" + name
}
