package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// StarredArgument defines starred list parameters.
type StarredArgument struct {
	Username string `json:"username" jsonschema:"GitHub username whose starred repositories are listed"`
}

// StarLister lists the repositories a user starred.
type StarLister interface {
	UserStarred(ctx context.Context, username string) ([]domain.RawRepository, error)
}

// StarredHandler handles the get_user_starred MCP tool.
type StarredHandler struct {
	lister StarLister
	now    func() time.Time
}

// NewStarredHandler creates a new starred handler.
func NewStarredHandler(lister StarLister) *StarredHandler {
	return &StarredHandler{lister: lister, now: time.Now}
}

// Handle lists a user's starred repositories. An unknown user yields an empty list.
func (h *StarredHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StarredArgument) (*mcp.CallToolResult, any, error) {
	username := strings.TrimPrefix(strings.TrimSpace(args.Username), "@")
	if username == "" {
		return errorResult("Username cannot be empty"), nil, nil
	}

	raws, err := h.lister.UserStarred(ctx, username)
	if errors.Is(err, domain.ErrNotFound) {
		raws, err = nil, nil
	}
	if err != nil {
		slog.Error("Listing starred repositories failed", "username", username, "error", err)
		return errorResult(fmt.Sprintf("Failed to list starred repositories: %s", err)), nil, nil
	}

	if len(raws) == 0 {
		return textResult(fmt.Sprintf("No starred repositories found for user: %s", username)), nil, nil
	}

	now := h.now()
	views := make([]domain.RepositoryView, len(raws))
	for i, raw := range raws {
		views[i] = domain.NewRepositoryDocument(raw, now).View()
	}

	header := fmt.Sprintf("%s starred %d repositories:", username, len(views))
	return textResult(formatViews(views, header)), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StarredHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_user_starred",
		Description: "List the repositories a GitHub user has starred, useful for learning their interests",
	}
}

// RegisterStarredTool registers the starred tool with an MCP server.
func RegisterStarredTool(server *mcp.Server, lister StarLister) {
	handler := NewStarredHandler(lister)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
