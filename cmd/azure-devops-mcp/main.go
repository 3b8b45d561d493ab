// Package main provides the entry point for the Azure DevOps MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/jonathanscholtes/azure-devops-mcp/internal/server"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/auth"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/config"
	"github.com/jonathanscholtes/azure-devops-mcp/pkg/devops"
)

// envPrefix prefixes every environment fallback for a flag.
const envPrefix = "ADO_MCP_"

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		os.Exit(1)
	}
}

type serverOptions struct {
	configPath     string
	domains        []string
	authentication string
	tenant         string
	transport      string
	port           int
	logLevel       string
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	opts := &serverOptions{}

	cmd := &cobra.Command{
		Use:   "azure-devops-mcp [organization]",
		Short: "Azure DevOps Model Context Protocol (MCP) server",
		Long: `An MCP server that exposes Azure DevOps projects, teams, repositories,
work items and code search to MCP clients.

Flags fall back to ADO_MCP_<FLAG> environment variables, then to the
configuration file. On-behalf-of credentials are read from AZURE_CLIENT_ID
and AZURE_CLIENT_SECRET.`,
		Version:       mcpserver.Version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args, getenv)
			if err != nil {
				reportError(cmd.ErrOrStderr(), err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg); err != nil {
				reportError(cmd.ErrOrStderr(), err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringSliceVarP(&opts.domains, "domains", "d", nil, "Domains to enable: all, core, repositories, work-items, search")
	flags.StringVarP(&opts.authentication, "authentication", "a", "",
		"Authentication mode: interactive, service-chain-cli, service-chain-env, external, on-behalf-of")
	flags.StringVarP(&opts.tenant, "tenant", "t", "", "Entra ID tenant id")
	flags.StringVar(&opts.transport, "transport", "", "Transport: stdio or http")
	flags.IntVarP(&opts.port, "port", "p", 0, "Port for the http transport")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return cmd
}

// loadConfig resolves the configuration. Precedence is flag, then
// environment, then file, then default.
func loadConfig(cmd *cobra.Command, opts *serverOptions, args []string, getenv func(string) string) (*config.Config, error) {
	configPath := flagOrEnv(cmd, "config", opts.configPath, getenv)
	logLevel := flagOrEnv(cmd, "log-level", opts.logLevel, getenv)
	if err := setupLogging(cmd.ErrOrStderr(), logLevel); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := applyOverrides(cmd, cfg, opts, args, getenv); err != nil {
		return nil, err
	}
	cfg.LoadServiceCredentials(getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, opts *serverOptions, args []string, getenv func(string) string) error {
	if len(args) > 0 {
		cfg.Organization = args[0]
	} else if v := getenv(envPrefix + "ORGANIZATION"); v != "" {
		cfg.Organization = v
	}

	if cmd.Flags().Changed("domains") {
		cfg.Domains = opts.domains
	} else if v := getenv(envPrefix + "DOMAINS"); v != "" {
		cfg.Domains = strings.Split(v, ",")
	}

	if v := flagOrEnv(cmd, "authentication", opts.authentication, getenv); v != "" {
		cfg.Authentication = v
	}
	if v := flagOrEnv(cmd, "tenant", opts.tenant, getenv); v != "" {
		cfg.Tenant = v
	}
	if v := flagOrEnv(cmd, "transport", opts.transport, getenv); v != "" {
		cfg.Server.Transport = v
	}

	switch {
	case cmd.Flags().Changed("port"):
		cfg.Server.Port = opts.port
	case getenv(envPrefix+"PORT") != "":
		port, err := strconv.Atoi(getenv(envPrefix + "PORT"))
		if err != nil {
			return &auth.ConfigurationError{Field: "port", Reason: fmt.Sprintf("%s%s is not a number", envPrefix, "PORT")}
		}
		cfg.Server.Port = port
	}
	return nil
}

// flagOrEnv returns the flag value when it was set on the command line,
// otherwise its ADO_MCP_ environment variable, otherwise the flag default.
func flagOrEnv(cmd *cobra.Command, name, value string, getenv func(string) string) string {
	if cmd.Flags().Changed(name) {
		return value
	}
	key := envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	if v := getenv(key); v != "" {
		return v
	}
	return value
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return &auth.ConfigurationError{Field: "log-level", Reason: fmt.Sprintf("unknown level %q", level)}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	srv, err := mcpserver.NewFromConfig(ctx, cfg, devops.NewTenantResolver())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	return srv.Run(ctx)
}

// reportError logs err. Configuration problems are listed one per line.
func reportError(w io.Writer, err error) {
	if auth.IsConfigurationError(err) {
		slog.Error("invalid configuration", "error", err)
		_, _ = fmt.Fprintf(w, "configuration error:\n  %s\n", strings.ReplaceAll(err.Error(), "\n", "\n  "))
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.Error("server stopped", "error", err)
}
