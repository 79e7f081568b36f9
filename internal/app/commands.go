package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sha1n/mcp-repo-radar/internal/config"
	"github.com/sha1n/mcp-repo-radar/internal/ingest"
	"github.com/sha1n/mcp-repo-radar/internal/retrieve"
	"github.com/spf13/pflag"
)

// ErrAllPartitionsFailed is returned by RunIngest when no partition succeeded.
var ErrAllPartitionsFailed = errors.New("all partitions failed")

// SearchRequest holds the arguments of the search command.
type SearchRequest struct {
	Text      string
	Languages []string
	TopK      int
}

// RunIngest executes one ingestion run in the foreground and writes its
// report to w. Ingestion does not need to be enabled in settings.
func RunIngest(ctx context.Context, params RunParams, flags *pflag.FlagSet, w io.Writer) error {
	settings, err := LoadValidSettings(params, flags)
	if err != nil {
		return err
	}
	if settings.GitHub.Token == "" {
		slog.Warn("No GitHub token configured, ingestion will be heavily rate limited")
	}
	settings.Ingest.Enabled = true
	config.Log(settings)

	c, err := NewComponents(settings)
	if err != nil {
		return err
	}
	defer c.Close()

	report, err := c.Ingest.RunOnce(ctx)
	if err != nil {
		return err
	}
	WriteReport(w, report)

	if t := report.Totals(); t.Partitions > 0 && t.Failed == t.Partitions {
		return ErrAllPartitionsFailed
	}
	return nil
}

// WriteReport renders an ingestion report as plain text.
func WriteReport(w io.Writer, report *ingest.Report) {
	t := report.Totals()
	fmt.Fprintf(w, "Run %s finished in %s\n", report.RunID, report.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Partitions: %d (failed: %d, over result cap: %d)\n", t.Partitions, t.Failed, t.Overflowed)
	fmt.Fprintf(w, "Fetched: %d  Rejected: %d  Indexed: %d\n", t.Fetched, t.Rejected, t.Indexed)

	if failed := report.Failures(); len(failed) > 0 {
		fmt.Fprintln(w, "Failed partitions:")
		for _, p := range failed {
			fmt.Fprintf(w, "  %s: %v\n", p.Query, p.Err)
		}
	}

	var overflowed []string
	for _, p := range report.Partitions {
		if p.Overflowed {
			overflowed = append(overflowed, p.Query)
		}
	}
	if len(overflowed) > 0 {
		fmt.Fprintln(w, "Partitions over the result cap:")
		fmt.Fprintf(w, "  %s\n", strings.Join(overflowed, "\n  "))
	}
}

// RunSearch answers one query against the index and live search and writes
// the results to w as JSON.
func RunSearch(ctx context.Context, params RunParams, flags *pflag.FlagSet, req SearchRequest, w io.Writer) error {
	settings, err := LoadValidSettings(params, flags)
	if err != nil {
		return err
	}

	c, err := NewComponents(settings)
	if err != nil {
		return err
	}
	defer c.Close()

	views, err := c.Retriever.Search(ctx, retrieve.Query{
		Text:      req.Text,
		Languages: req.Languages,
		TopK:      req.TopK,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}
