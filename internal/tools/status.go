package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-repo-radar/internal/ingest"
)

// StatusArgument is empty; ingest_status takes no parameters.
type StatusArgument struct{}

// StatusReporter reports ingestion state.
type StatusReporter interface {
	Status() ingest.Status
}

// DocumentCounter reports the number of indexed documents.
type DocumentCounter interface {
	Count() (uint64, error)
}

// StatusHandler handles the ingest_status MCP tool.
type StatusHandler struct {
	reporter StatusReporter
	counter  DocumentCounter
}

// NewStatusHandler creates a new status handler. reporter may be nil when
// ingestion is disabled in this process.
func NewStatusHandler(reporter StatusReporter, counter DocumentCounter) *StatusHandler {
	return &StatusHandler{reporter: reporter, counter: counter}
}

// Handle describes the index size and the last ingestion run.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgument) (*mcp.CallToolResult, any, error) {
	var sb strings.Builder

	if h.counter != nil {
		count, err := h.counter.Count()
		if err != nil {
			return errorResult(fmt.Sprintf("Failed to read index: %s", err)), nil, nil
		}
		sb.WriteString(fmt.Sprintf("**Indexed repositories**: %d\n", count))
	}

	if h.reporter == nil {
		sb.WriteString("**Ingestion**: disabled\n")
		return textResult(sb.String()), nil, nil
	}

	st := h.reporter.Status()
	state := "idle"
	if st.Running {
		state = "running"
	}
	if !st.Enabled {
		state = "disabled"
	}
	sb.WriteString(fmt.Sprintf("**Ingestion**: %s\n", state))

	if st.LastRun.IsZero() {
		sb.WriteString("**Last run**: never\n")
	} else {
		sb.WriteString(fmt.Sprintf("**Last run**: %s (run %s)\n", st.LastRun.UTC().Format(time.RFC3339), st.LastRunID))
		t := st.Totals
		sb.WriteString(fmt.Sprintf("**Partitions**: %d (%d failed, %d over the result cap)\n", t.Partitions, t.Failed, t.Overflowed))
		sb.WriteString(fmt.Sprintf("**Fetched**: %d | **Rejected**: %d | **Indexed**: %d\n", t.Fetched, t.Rejected, t.Indexed))
	}
	if !st.NextRun.IsZero() {
		sb.WriteString(fmt.Sprintf("**Next run**: %s\n", st.NextRun.UTC().Format(time.RFC3339)))
	}

	if len(st.Failures) > 0 {
		sb.WriteString("\n### Failed partitions\n")
		queries := make([]string, 0, len(st.Failures))
		for q := range st.Failures {
			queries = append(queries, q)
		}
		sort.Strings(queries)
		for _, q := range queries {
			sb.WriteString(fmt.Sprintf("- `%s`: %s\n", q, st.Failures[q]))
		}
	}

	if len(st.Overflowed) > 0 {
		sb.WriteString("\n### Partitions over the result cap\n")
		for _, q := range st.Overflowed {
			sb.WriteString(fmt.Sprintf("- `%s`\n", q))
		}
	}

	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StatusHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "ingest_status",
		Description: "Report the size of the local repository index and the outcome of the last ingestion run",
	}
}

// RegisterStatusTool registers the status tool with an MCP server.
func RegisterStatusTool(server *mcp.Server, reporter StatusReporter, counter DocumentCounter) {
	handler := NewStatusHandler(reporter, counter)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
