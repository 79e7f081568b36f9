package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/tools"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Retriever enables search_repositories
	Retriever tools.Retriever
	// Platform enables get_user_starred and get_repo_readme
	Platform Platform
	// Counter enables ingest_status; Ingest adds run details to it
	Counter tools.DocumentCounter
	Ingest  tools.StatusReporter
}

// Platform is the live platform surface used by the tools.
type Platform interface {
	tools.StarLister
	tools.ReadmeFetcher
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Retriever != nil {
		tools.RegisterSearchTool(s, cfg.Retriever)
	}
	if cfg.Platform != nil {
		tools.RegisterStarredTool(s, cfg.Platform)
		tools.RegisterReadmeTool(s, cfg.Platform)
	}
	if cfg.Counter != nil {
		tools.RegisterStatusTool(s, cfg.Ingest, cfg.Counter)
	}

	return s
}
