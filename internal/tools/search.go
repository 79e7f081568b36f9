package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
	"github.com/sha1n/mcp-repo-radar/internal/retrieve"
)

// MaxTopK is the largest result count a caller may request
const MaxTopK = 100

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query     string   `json:"query" jsonschema:"Keywords matched against repository name, description, topics and language"`
	Languages []string `json:"languages,omitempty" jsonschema:"Restrict results to these languages, exact names such as Go or TypeScript"`
	TopK      int      `json:"top_k,omitempty" jsonschema:"Maximum number of repositories to return (default 20)"`
}

// Retriever answers repository search queries.
type Retriever interface {
	Search(ctx context.Context, q retrieve.Query) ([]domain.RepositoryView, error)
}

// SearchHandler handles the search_repositories MCP tool.
type SearchHandler struct {
	retriever Retriever
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(retriever Retriever) *SearchHandler {
	return &SearchHandler{retriever: retriever}
}

// Handle runs a hybrid search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	languages := make([]string, 0, len(args.Languages))
	for _, l := range args.Languages {
		if l = strings.TrimSpace(l); l != "" {
			languages = append(languages, l)
		}
	}

	if strings.TrimSpace(args.Query) == "" && len(languages) == 0 {
		return errorResult("Query cannot be empty unless languages are given"), nil, nil
	}
	if args.TopK < 0 || args.TopK > MaxTopK {
		return errorResult(fmt.Sprintf("top_k must be between 1 and %d", MaxTopK)), nil, nil
	}

	views, err := h.retriever.Search(ctx, retrieve.Query{
		Text:      args.Query,
		Languages: languages,
		TopK:      args.TopK,
	})
	if err != nil {
		slog.Error("Repository search failed", "query", args.Query, "error", err)
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return errorResult("Search is not available. The repository index cannot be read. Please try again later."), nil, nil
		}
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	if len(views) == 0 {
		return textResult(fmt.Sprintf("No repositories found for query: %s", args.Query)), nil, nil
	}

	header := fmt.Sprintf("Found %d repositories for '%s':", len(views), args.Query)
	return textResult(formatViews(views, header)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name: "search_repositories",
		Description: "Search GitHub repositories by name, description, topics and language. " +
			"Combines a local index of active repositories with a live GitHub search; " +
			"results favour recently popular projects.",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, retriever Retriever) {
	handler := NewSearchHandler(retriever)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
