// Package tools exposes repository discovery as MCP tools.
package tools

import (
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	res := textResult(text)
	res.IsError = true
	return res
}

// formatViews renders repositories as a markdown list.
func formatViews(views []domain.RepositoryView, header string) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")

	for i, v := range views {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, v.FullName))
		sb.WriteString(fmt.Sprintf("**Stars**: %d", v.Stars))
		if v.Language != nil {
			sb.WriteString(fmt.Sprintf(" | **Language**: %s", *v.Language))
		}
		if v.CreatedAt != "" {
			sb.WriteString(fmt.Sprintf(" | **Created**: %s", v.CreatedAt))
		}
		sb.WriteString("\n")
		if len(v.Topics) > 0 {
			sb.WriteString(fmt.Sprintf("**Topics**: %s\n", strings.Join(v.Topics, ", ")))
		}
		if v.Description != nil && *v.Description != "" {
			sb.WriteString("\n")
			sb.WriteString(*v.Description)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
