package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.String("github-token", "", "GitHub API token (falls back to GITHUB_TOKEN)")
	flags.String("github-base-url", "", "GitHub API base URL, for GitHub Enterprise")
	flags.Duration("github-timeout", 0, "GitHub API request timeout")
	flags.Float64("github-requests-per-second", 0, "GitHub API request rate for ingestion (0 means unthrottled)")
	flags.Float64("github-interactive-requests-per-second", 0, "GitHub API request rate for live search, starred and README calls (0 means unthrottled)")

	flags.StringP("index-dir", "d", "", "Directory holding the search index and ingestion state")

	flags.Bool("ingest-enabled", false, "Periodically ingest repositories into the index")
	flags.Int("ingest-workers", 0, "Number of partitions fetched concurrently")
	flags.String("ingest-pushed-after", "", "Only ingest repositories pushed on or after this date (YYYY-MM-DD)")
	flags.Duration("ingest-interval", 0, "Interval between ingestion runs")
	flags.Bool("ingest-on-start", false, "Run ingestion at startup when the last run is older than the interval")

	flags.Int("search-top-k", 0, "Default number of search results")
	flags.String("search-matching-strategy", "", "Term matching strategy: frequency, last, or all")
	flags.Float64("search-score-threshold", 0, "Minimum normalized index score (0..1)")
	flags.Bool("search-live-enabled", false, "Blend live GitHub search results into index results")
	flags.Duration("search-live-timeout", 0, "Timeout for the live GitHub search")

	flags.String("log-level", "", "Log level: debug, info, warn, or error")
	flags.String("log-format", "", "Log format: text or json")
}
