package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
	"github.com/sha1n/mcp-repo-radar/internal/platform"
)

// ReadmeArgument defines README lookup parameters.
type ReadmeArgument struct {
	FullName string `json:"full_name" jsonschema:"Repository as owner/name or a github.com URL"`
}

// ReadmeFetcher fetches README documents.
type ReadmeFetcher interface {
	Readme(ctx context.Context, ref string) (string, error)
}

// ReadmeHandler handles the get_repo_readme MCP tool.
type ReadmeHandler struct {
	fetcher ReadmeFetcher
}

// NewReadmeHandler creates a new README handler.
func NewReadmeHandler(fetcher ReadmeFetcher) *ReadmeHandler {
	return &ReadmeHandler{fetcher: fetcher}
}

// Handle returns the README markdown of a repository.
func (h *ReadmeHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReadmeArgument) (*mcp.CallToolResult, any, error) {
	ref := strings.TrimSpace(args.FullName)
	if ref == "" {
		return errorResult("Repository cannot be empty"), nil, nil
	}

	fullName, err := platform.NormalizeFullName(ref)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid repository: %s", err)), nil, nil
	}

	content, err := h.fetcher.Readme(ctx, fullName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errorResult(fmt.Sprintf("README not found for repository: %s", fullName)), nil, nil
		}
		slog.Error("README lookup failed", "full_name", fullName, "error", err)
		return errorResult(fmt.Sprintf("Failed to fetch README: %s", err)), nil, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Repository**: %s\n", fullName))
	sb.WriteString(fmt.Sprintf("**Size**: %d bytes\n\n", len(content)))
	sb.WriteString(content)

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ReadmeHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_repo_readme",
		Description: "Fetch the README of a GitHub repository in markdown format",
	}
}

// RegisterReadmeTool registers the README tool with an MCP server.
func RegisterReadmeTool(server *mcp.Server, fetcher ReadmeFetcher) {
	handler := NewReadmeHandler(fetcher)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
