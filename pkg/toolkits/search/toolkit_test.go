package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops/devopstest"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/toolkit/toolkittest"
)

func fixtureClient() *devopstest.Client {
	return &devopstest.Client{
		Search: &devops.SearchCodeResult{
			Count: 1,
			Results: []devops.CodeHit{{
				FileName:   "auth.go",
				Path:       "/pkg/auth.go",
				Project:    devops.NamedRef{Name: "Fabrikam"},
				Repository: devops.NamedRef{Name: "api"},
			}},
		},
	}
}

func newToolkit(t *testing.T, p *devopstest.Provider, cfg Config) *Toolkit {
	t.Helper()
	tk, err := New(kind, p, cfg)
	require.NoError(t, err)
	return tk
}

func TestToolkit_Metadata(t *testing.T) {
	tk := newToolkit(t, &devopstest.Provider{Client: fixtureClient()}, Config{})
	assert.Equal(t, kind, tk.Kind())
	assert.Equal(t, kind, tk.Name())
	assert.Equal(t, []string{toolSearchCode}, tk.Tools())
	assert.Equal(t, devops.DefaultSearchTop, tk.config.DefaultTop)
	assert.Equal(t, DefaultMaxTop, tk.config.MaxTop)
	assert.NoError(t, tk.Close())

	_, err := New(kind, nil, Config{})
	assert.Error(t, err)
}

func TestSearchCode(t *testing.T) {
	client := fixtureClient()
	cs := toolkittest.Connect(t, newToolkit(t, &devopstest.Provider{Client: client}, Config{}))

	res := toolkittest.Call(t, cs, toolSearchCode, map[string]any{
		"searchText": "AcquireToken",
		"project":    []string{"Fabrikam"},
		"branch":     []string{"main"},
	})
	require.False(t, res.IsError, toolkittest.Text(t, res))

	var out devops.SearchCodeResult
	toolkittest.Decode(t, res, &out)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "auth.go", out.Results[0].FileName)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, devops.SearchCodeRequest{
		SearchText: "AcquireToken",
		Projects:   []string{"Fabrikam"},
		Branches:   []string{"main"},
		Top:        devops.DefaultSearchTop,
	}, calls[0].Args)
}

func TestSearchCode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		provider *devopstest.Provider
		args     map[string]any
		wantErr  string
	}{
		{name: "empty text", provider: &devopstest.Provider{Client: fixtureClient()}, args: map[string]any{"searchText": ""}, wantErr: "must not be empty"},
		{name: "top too large", provider: &devopstest.Provider{Client: fixtureClient()}, args: map[string]any{"searchText": "x", "top": 5000}, wantErr: "must not exceed 1000"},
		{name: "negative skip", provider: &devopstest.Provider{Client: fixtureClient()}, args: map[string]any{"searchText": "x", "skip": -1}, wantErr: "negative"},
		{name: "token", provider: &devopstest.Provider{Err: errors.New("on-behalf-of authentication: token exchange: AADSTS50013")}, args: map[string]any{"searchText": "x"}, wantErr: "AADSTS50013"},
		{name: "upstream", provider: &devopstest.Provider{Client: &devopstest.Client{Err: &devops.APIError{StatusCode: 403, Body: "denied"}}}, args: map[string]any{"searchText": "x"}, wantErr: "403"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs := toolkittest.Connect(t, newToolkit(t, tt.provider, Config{}))
			res := toolkittest.Call(t, cs, toolSearchCode, tt.args)
			assert.Contains(t, toolkittest.ErrorMessage(t, res), tt.wantErr)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{DefaultTop: devops.DefaultSearchTop, MaxTop: DefaultMaxTop}, cfg)

	cfg, err = ParseConfig(map[string]any{"default_top": 10, "max_top": 50})
	require.NoError(t, err)
	assert.Equal(t, Config{DefaultTop: 10, MaxTop: 50}, cfg)

	_, err = ParseConfig(map[string]any{"default_top": 100, "max_top": 50})
	assert.Error(t, err)

	_, err = ParseConfig(map[string]any{"max_top": -1})
	assert.Error(t, err)
}
