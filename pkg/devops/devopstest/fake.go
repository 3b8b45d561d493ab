// Package devopstest provides in-memory organization clients for tests.
package devopstest

import (
	"context"
	"sync"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
)

// Client is an OrgClient backed by canned data. Err, when set, is returned
// by every call.
type Client struct {
	Projects     []devops.Project
	Teams        map[string][]devops.Team
	Repositories map[string][]devops.Repository
	WorkItems    map[int]*devops.WorkItem
	Search       *devops.SearchCodeResult
	Err          error

	mu    sync.Mutex
	calls []Call
}

// Call records one client invocation.
type Call struct {
	Method  string
	Project string
	Args    any
}

// Calls returns the recorded invocations.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Client) record(method, project string, args any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, Project: project, Args: args})
}

// ListProjects implements devops.OrgClient.
func (c *Client) ListProjects(_ context.Context, opts devops.ListProjectsOptions) ([]devops.Project, error) {
	c.record("ListProjects", "", opts)
	if c.Err != nil {
		return nil, c.Err
	}
	return page(c.Projects, opts.Skip, opts.Top), nil
}

// ListTeams implements devops.OrgClient.
func (c *Client) ListTeams(_ context.Context, project string, opts devops.ListTeamsOptions) ([]devops.Team, error) {
	c.record("ListTeams", project, opts)
	if c.Err != nil {
		return nil, c.Err
	}
	return page(c.Teams[project], opts.Skip, opts.Top), nil
}

// ListRepositories implements devops.OrgClient.
func (c *Client) ListRepositories(_ context.Context, project string) ([]devops.Repository, error) {
	c.record("ListRepositories", project, nil)
	if c.Err != nil {
		return nil, c.Err
	}
	repos := c.Repositories[project]
	if repos == nil {
		repos = []devops.Repository{}
	}
	return repos, nil
}

// GetWorkItem implements devops.OrgClient.
func (c *Client) GetWorkItem(_ context.Context, id int, opts devops.GetWorkItemOptions) (*devops.WorkItem, error) {
	c.record("GetWorkItem", opts.Project, opts)
	if c.Err != nil {
		return nil, c.Err
	}
	wi, ok := c.WorkItems[id]
	if !ok {
		return nil, &devops.APIError{StatusCode: 404, Body: "work item does not exist"}
	}
	return wi, nil
}

// SearchCode implements devops.OrgClient.
func (c *Client) SearchCode(_ context.Context, req devops.SearchCodeRequest) (*devops.SearchCodeResult, error) {
	c.record("SearchCode", "", req)
	if c.Err != nil {
		return nil, c.Err
	}
	if req.SearchText == "" {
		return nil, devops.ErrEmptySearchText
	}
	if c.Search == nil {
		return &devops.SearchCodeResult{Results: []devops.CodeHit{}}, nil
	}
	return c.Search, nil
}

// Provider hands out Client, or fails with Err.
type Provider struct {
	Client *Client
	Err    error
}

// For implements devops.ClientProvider.
func (p *Provider) For(context.Context) (devops.OrgClient, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Client, nil
}

func page[T any](items []T, skip, top int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if top > 0 && top < len(items) {
		items = items[:top]
	}
	return items
}

var (
	_ devops.OrgClient      = (*Client)(nil)
	_ devops.ClientProvider = (*Provider)(nil)
)
