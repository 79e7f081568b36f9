package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/config"
	"github.com/sha1n/mcp-repo-radar/internal/index"
	"github.com/sha1n/mcp-repo-radar/internal/ingest"
	mcputil "github.com/sha1n/mcp-repo-radar/internal/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/platform"
	"github.com/sha1n/mcp-repo-radar/internal/retrieve"
	"github.com/sha1n/mcp-repo-radar/internal/tools"
	"github.com/spf13/pflag"
)

// ServerName is the MCP implementation name
const ServerName = "radar-mcp"

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(context.Context, *config.Settings, string) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// LoadValidSettings loads settings, validates them and configures the
// default logger.
func LoadValidSettings(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Always log to stderr, stdout carries the stdio transport
	slog.SetDefault(config.NewLogger(settings.Log, os.Stderr))
	return settings, nil
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := LoadValidSettings(params, flags)
	if err != nil {
		return err
	}

	slog.Info("Starting MCP repo radar server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(ctx, settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// Components are the long-lived parts of a running radar.
type Components struct {
	Index     *index.Index
	Platform  *platform.Client
	Retriever *retrieve.Retriever
	Ingest    *ingest.Service
}

// Close releases the index.
func (c *Components) Close() {
	if c.Index == nil {
		return
	}
	if err := c.Index.Close(); err != nil {
		slog.Error("Failed to close index", "error", err)
	}
}

// NewComponents opens the index and builds the platform client, retriever
// and, when enabled, the ingestion service. The ingestion service is built
// but not started.
func NewComponents(settings *config.Settings) (*Components, error) {
	client, err := platform.NewClient(platform.Options{
		Token:                        settings.GitHub.Token,
		BaseURL:                      settings.GitHub.BaseURL,
		Timeout:                      settings.GitHub.Timeout,
		RequestsPerSecond:            settings.GitHub.RequestsPerSecond,
		Burst:                        settings.GitHub.Burst,
		InteractiveRequestsPerSecond: settings.GitHub.InteractiveRequestsPerSecond,
		InteractiveBurst:             settings.GitHub.InteractiveBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create github client: %w", err)
	}

	idx, err := index.Open(index.Path(settings.Index.Dir))
	if err != nil {
		return nil, err
	}
	c := &Components{Index: idx, Platform: client}

	c.Retriever, err = retrieve.NewRetriever(idx, client, settings.Search)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	if settings.Ingest.Enabled {
		c.Ingest, err = ingest.NewService(&settings.Ingest, settings.Index.Dir, client.Bulk(), idx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create ingest service: %w", err)
		}
	}
	return c, nil
}

// CreateMCPServer creates the MCP server with registered tools and starts
// background ingestion when enabled.
func CreateMCPServer(ctx context.Context, settings *config.Settings, version string) (*mcp.Server, func(), error) {
	c, err := NewComponents(settings)
	if err != nil {
		return nil, nil, err
	}

	var reporter tools.StatusReporter
	ingestCtx, cancel := context.WithCancel(ctx)
	if c.Ingest != nil {
		c.Ingest.Start(ingestCtx)
		reporter = c.Ingest
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:      ServerName,
		Version:   version,
		Retriever: c.Retriever,
		Platform:  c.Platform,
		Counter:   c.Index,
		Ingest:    reporter,
	})

	cleanup := func() {
		cancel()
		if c.Ingest != nil {
			c.Ingest.Wait()
		}
		c.Close()
	}
	return server, cleanup, nil
}
