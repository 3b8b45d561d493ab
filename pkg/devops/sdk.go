package devops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/core"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/git"
	"github.com/microsoft/azure-devops-go-api/azuredevops/v7/workitemtracking"
	"golang.org/x/oauth2"
)

// orgClient is the OrgClient backed by the Azure DevOps SDK. Area clients
// are created per call because their construction resolves service
// locations with the caller's token.
type orgClient struct {
	conn   *azuredevops.Connection
	search *searchClient
}

func newConnection(orgURL string, tok *oauth2.Token, userAgent string) *azuredevops.Connection {
	conn := azuredevops.NewAnonymousConnection(orgURL)
	conn.AuthorizationString = "Bearer " + tok.AccessToken
	conn.UserAgent = userAgent
	return conn
}

func (c *orgClient) ListProjects(ctx context.Context, opts ListProjectsOptions) ([]Project, error) {
	client, err := core.NewClient(ctx, c.conn)
	if err != nil {
		return nil, fmt.Errorf("creating core client: %w", err)
	}

	resp, err := client.GetProjects(ctx, core.GetProjectsArgs{
		Top:  optionalInt(opts.Top),
		Skip: optionalInt(opts.Skip),
	})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	if resp == nil {
		return []Project{}, nil
	}

	projects := make([]Project, 0, len(resp.Value))
	for _, p := range resp.Value {
		project := Project{
			ID:          uuidString(p.Id),
			Name:        deref(p.Name),
			Description: deref(p.Description),
			URL:         deref(p.Url),
		}
		if p.State != nil {
			project.State = string(*p.State)
		}
		if p.Visibility != nil {
			project.Visibility = string(*p.Visibility)
		}
		projects = append(projects, project)
	}
	return projects, nil
}

func (c *orgClient) ListTeams(ctx context.Context, project string, opts ListTeamsOptions) ([]Team, error) {
	client, err := core.NewClient(ctx, c.conn)
	if err != nil {
		return nil, fmt.Errorf("creating core client: %w", err)
	}

	args := core.GetTeamsArgs{
		ProjectId: &project,
		Top:       optionalInt(opts.Top),
		Skip:      optionalInt(opts.Skip),
	}
	if opts.Mine {
		mine := true
		args.Mine = &mine
	}

	resp, err := client.GetTeams(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("listing teams of %s: %w", project, err)
	}
	if resp == nil {
		return []Team{}, nil
	}

	teams := make([]Team, 0, len(*resp))
	for _, t := range *resp {
		teams = append(teams, Team{
			ID:          uuidString(t.Id),
			Name:        deref(t.Name),
			Description: deref(t.Description),
			ProjectName: deref(t.ProjectName),
			URL:         deref(t.Url),
		})
	}
	return teams, nil
}

func (c *orgClient) ListRepositories(ctx context.Context, project string) ([]Repository, error) {
	client, err := git.NewClient(ctx, c.conn)
	if err != nil {
		return nil, fmt.Errorf("creating git client: %w", err)
	}

	resp, err := client.GetRepositories(ctx, git.GetRepositoriesArgs{Project: &project})
	if err != nil {
		return nil, fmt.Errorf("listing repositories of %s: %w", project, err)
	}
	if resp == nil {
		return []Repository{}, nil
	}

	repos := make([]Repository, 0, len(*resp))
	for _, r := range *resp {
		repo := Repository{
			ID:            uuidString(r.Id),
			Name:          deref(r.Name),
			DefaultBranch: deref(r.DefaultBranch),
			WebURL:        deref(r.WebUrl),
			RemoteURL:     deref(r.RemoteUrl),
		}
		if r.Size != nil {
			repo.Size = *r.Size
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func (c *orgClient) GetWorkItem(ctx context.Context, id int, opts GetWorkItemOptions) (*WorkItem, error) {
	client, err := workitemtracking.NewClient(ctx, c.conn)
	if err != nil {
		return nil, fmt.Errorf("creating work item client: %w", err)
	}

	args := workitemtracking.GetWorkItemArgs{Id: &id}
	if opts.Project != "" {
		args.Project = &opts.Project
	}
	if len(opts.Fields) > 0 {
		fields := opts.Fields
		args.Fields = &fields
	}

	wi, err := client.GetWorkItem(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("getting work item %d: %w", id, err)
	}
	if wi == nil {
		return nil, fmt.Errorf("getting work item %d: empty response", id)
	}

	item := &WorkItem{
		ID:     id,
		URL:    deref(wi.Url),
		Fields: map[string]any{},
	}
	if wi.Id != nil {
		item.ID = *wi.Id
	}
	if wi.Rev != nil {
		item.Rev = *wi.Rev
	}
	if wi.Fields != nil {
		item.Fields = *wi.Fields
	}
	return item, nil
}

func (c *orgClient) SearchCode(ctx context.Context, req SearchCodeRequest) (*SearchCodeResult, error) {
	return c.search.Search(ctx, req)
}

func optionalInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

var _ OrgClient = (*orgClient)(nil)
