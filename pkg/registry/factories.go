package registry

import (
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	corekit "github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkits/core"
	repokit "github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkits/repositories"
	searchkit "github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkits/search"
	witkit "github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkits/workitems"
)

// RegisterBuiltinFactories registers a factory for every known domain.
func RegisterBuiltinFactories(r *Registry) {
	r.RegisterFactory(string(DomainCore), CoreFactory)
	r.RegisterFactory(string(DomainRepositories), RepositoriesFactory)
	r.RegisterFactory(string(DomainWorkItems), WorkItemsFactory)
	r.RegisterFactory(string(DomainSearch), SearchFactory)
}

// CoreFactory creates the projects and teams toolkit.
func CoreFactory(name string, clients devops.ClientProvider, cfg map[string]any) (Toolkit, error) {
	config, err := corekit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return corekit.New(name, clients, config)
}

// RepositoriesFactory creates the Git repositories toolkit.
func RepositoriesFactory(name string, clients devops.ClientProvider, _ map[string]any) (Toolkit, error) {
	return repokit.New(name, clients)
}

// WorkItemsFactory creates the work items toolkit.
func WorkItemsFactory(name string, clients devops.ClientProvider, cfg map[string]any) (Toolkit, error) {
	config, err := witkit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return witkit.New(name, clients, config)
}

// SearchFactory creates the code search toolkit.
func SearchFactory(name string, clients devops.ClientProvider, cfg map[string]any) (Toolkit, error) {
	config, err := searchkit.ParseConfig(cfg)
	if err != nil {
		return nil, err
	}
	return searchkit.New(name, clients, config)
}
