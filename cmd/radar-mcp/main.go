package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/mcp-repo-radar/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "radar-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "Repo Radar MCP Server",
		Long:    "Discovers popular, active GitHub repositories and serves hybrid index and live search over MCP",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Context(), cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(newIngestCommand(), newSearchCommand())
	rootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func newIngestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Run one ingestion pass into the local index and print its report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunIngest(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), cmd.OutOrStdout())
		},
	}
}

func newSearchCommand() *cobra.Command {
	var req app.SearchRequest
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search repositories and print the results as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Text = args[0]
			}
			return app.RunSearch(cmd.Context(), app.DefaultRunParams(), cmd.Flags(), req, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVarP(&req.Languages, "language", "l", nil, "Restrict results to these languages (repeatable)")
	cmd.Flags().IntVarP(&req.TopK, "top-k", "n", 0, "Number of results (defaults to search-top-k)")
	return cmd
}

func runWithFlags(ctx context.Context, flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(ctx, app.DefaultRunParams(), flags, version)
}
