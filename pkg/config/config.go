// Package config loads and validates server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/registry"
)

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Defaults applied by LoadConfig and Default.
const (
	DefaultName            = "azure-devops-mcp"
	DefaultPort            = 3000
	DefaultShutdownTimeout = 10 * time.Second
)

// Environment variables that carry the on-behalf-of client identity.
const (
	EnvClientID     = "AZURE_CLIENT_ID"
	EnvClientSecret = "AZURE_CLIENT_SECRET" //nolint:gosec // G101: variable name, not a credential
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Config holds the complete server configuration.
type Config struct {
	Organization   string                    `yaml:"organization"`
	Domains        DomainList                `yaml:"domains"`
	Authentication string                    `yaml:"authentication"`
	Tenant         string                    `yaml:"tenant"`
	Server         ServerConfig              `yaml:"server"`
	ClientLogging  ClientLoggingConfig       `yaml:"client_logging"`
	Toolkits       map[string]map[string]any `yaml:"toolkits"`

	// ServiceCredentials is read from the environment, never from the file.
	ServiceCredentials *auth.ServiceCredentials `yaml:"-"`
}

// ServerConfig configures the MCP server and its transport.
type ServerConfig struct {
	Name            string         `yaml:"name"`
	Instructions    string         `yaml:"instructions"`
	Transport       string         `yaml:"transport"` // "stdio", "http"
	Address         string         `yaml:"address"`
	Port            int            `yaml:"port"`
	MaxBodyBytes    int64          `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	Prompts         []PromptConfig `yaml:"prompts"`
}

// PromptConfig defines a server-level MCP prompt.
type PromptConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"content"`
}

// ClientLoggingConfig configures log notifications sent to MCP clients.
type ClientLoggingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DomainList is the configured domain selection. In YAML it may be a single
// string or a list of strings.
type DomainList []string

// UnmarshalYAML accepts a scalar or a sequence.
func (d *DomainList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*d = DomainList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*d = list
		return nil
	default:
		return fmt.Errorf("domains: expected a string or a list, got line %d", value.Line)
	}
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if len(cfg.Domains) == 0 {
		cfg.Domains = DomainList{"all"}
	}
	if cfg.Authentication == "" {
		cfg.Authentication = string(auth.ModeInteractive)
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = DefaultName
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// LoadServiceCredentials fills ServiceCredentials from the environment when
// either variable is set.
func (c *Config) LoadServiceCredentials(getenv func(string) string) {
	id, secret := getenv(EnvClientID), getenv(EnvClientSecret)
	if id == "" && secret == "" {
		return
	}
	c.ServiceCredentials = &auth.ServiceCredentials{ClientID: id, ClientSecret: secret}
}

// Mode returns the parsed authentication mode.
func (c *Config) Mode() (auth.Mode, error) {
	return auth.ParseMode(c.Authentication)
}

// EnabledDomains resolves the configured domain list.
func (c *Config) EnabledDomains() registry.DomainSet {
	return registry.ParseDomains(c.Domains)
}

// AuthConfig returns the backend configuration for tenant. Callers pass the
// configured tenant or one resolved from the organization.
func (c *Config) AuthConfig(tenant string) (auth.Config, error) {
	mode, err := c.Mode()
	if err != nil {
		return auth.Config{}, err
	}
	return auth.Config{
		Mode:               mode,
		TenantID:           tenant,
		ServiceCredentials: c.ServiceCredentials,
	}, nil
}

// ListenAddress returns the host:port the HTTP transport binds.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Validate reports every problem with the configuration. Each problem is a
// *auth.ConfigurationError; they are joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if err := devops.ValidateOrganization(c.Organization); err != nil {
		errs = append(errs, err)
	}

	mode, err := c.Mode()
	if err != nil {
		errs = append(errs, err)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, &auth.ConfigurationError{
			Field:  "transport",
			Reason: fmt.Sprintf("unknown transport %q (supported: %s, %s)", c.Server.Transport, TransportStdio, TransportHTTP),
		})
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &auth.ConfigurationError{
			Field:  "port",
			Reason: fmt.Sprintf("%d is outside 1-65535", c.Server.Port),
		})
	}

	if mode.UsesRequestIdentity() && c.Server.Transport != TransportHTTP {
		errs = append(errs, &auth.ConfigurationError{
			Field:  "transport",
			Reason: fmt.Sprintf("%s authentication reads the caller's bearer token and requires the %s transport", mode, TransportHTTP),
		})
	}

	if mode == auth.ModeOnBehalfOf {
		creds := c.ServiceCredentials
		if creds == nil || strings.TrimSpace(creds.ClientID) == "" || strings.TrimSpace(creds.ClientSecret) == "" {
			errs = append(errs, &auth.ConfigurationError{
				Field:  EnvClientID + "/" + EnvClientSecret,
				Reason: "both must be set for on-behalf-of authentication",
			})
		}
	}

	errs = append(errs, validatePrompts(c.Server.Prompts)...)

	return errors.Join(errs...)
}

func validatePrompts(prompts []PromptConfig) []error {
	var errs []error
	seen := make(map[string]bool, len(prompts))
	for i, p := range prompts {
		field := fmt.Sprintf("server.prompts[%d]", i)
		switch {
		case p.Name == "":
			errs = append(errs, &auth.ConfigurationError{Field: field, Reason: "name is required"})
		case seen[p.Name]:
			errs = append(errs, &auth.ConfigurationError{Field: field, Reason: fmt.Sprintf("duplicate prompt %q", p.Name)})
		case p.Content == "":
			errs = append(errs, &auth.ConfigurationError{Field: field, Reason: "content is required"})
		}
		seen[p.Name] = true
	}
	return errs
}
