// Package platform provides the GitHub client used for repository discovery,
// live search, starred lists and README lookup.
package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
	"golang.org/x/time/rate"
)

const (
	// MaxSearchResults is the number of results the search endpoint returns
	// for a single query, regardless of how many repositories match.
	MaxSearchResults = 1000

	// MaxPerPage is the largest page size the API accepts
	MaxPerPage = 100

	// DefaultTimeout is the HTTP client timeout when none is configured
	DefaultTimeout = 30 * time.Second
)

// Options configures the Client.
type Options struct {
	Token   string
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond and Burst throttle bulk calls made through Bulk().
	RequestsPerSecond float64
	Burst             int
	// InteractiveRequestsPerSecond and InteractiveBurst throttle every other
	// call. Bulk traffic never consumes this budget.
	InteractiveRequestsPerSecond float64
	InteractiveBurst             int
	HTTPClient                   *http.Client
}

// SearchOptions controls a repository search.
type SearchOptions struct {
	// Sort is "stars", "forks", "help-wanted-issues" or "updated"; empty means best match.
	Sort string
	// Order is "asc" or "desc".
	Order string
	// Limit caps the number of records collected. Zero or above MaxSearchResults means MaxSearchResults.
	Limit int
}

// SearchResult is one executed repository search.
type SearchResult struct {
	// Total is the number of repositories the platform reports as matching.
	Total      int
	Incomplete bool
	Records    []domain.RawRepository
}

// Overflowed reports whether more repositories matched than the platform
// could return for a single query.
func (r *SearchResult) Overflowed() bool {
	return r.Total > MaxSearchResults
}

// Client wraps the go-github client with request throttling and error
// classification. Calls are throttled by the interactive budget unless made
// through the handle returned by Bulk.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	bulk    *rate.Limiter
}

// NewClient creates a GitHub client.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	gh := github.NewClient(httpClient)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}

	if opts.BaseURL != "" {
		base := opts.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:      gh,
		limiter: newLimiter(opts.InteractiveRequestsPerSecond, opts.InteractiveBurst),
		bulk:    newLimiter(opts.RequestsPerSecond, opts.Burst),
	}, nil
}

// newLimiter returns a limiter for rps requests per second; zero or less
// means unthrottled.
func newLimiter(rps float64, burst int) *rate.Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// Bulk returns a handle on the same client that draws on the bulk request
// budget. Ingestion uses it so that paging through partitions cannot starve
// interactive calls.
func (c *Client) Bulk() *Client {
	return &Client{gh: c.gh, limiter: c.bulk, bulk: c.bulk}
}

// wait blocks until the limiter admits one request. A wait that cannot
// finish before the context deadline is reported as domain.ErrRateLimited.
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("throttle wait: %w", ctxErr)
		}
		return fmt.Errorf("throttle wait: %w: %v", domain.ErrRateLimited, err)
	}
	return nil
}

// SearchRepositories runs a repository search and collects up to opts.Limit
// records across pages.
func (c *Client) SearchRepositories(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	searchOpts := &github.SearchOptions{
		Sort:  opts.Sort,
		Order: opts.Order,
		ListOptions: github.ListOptions{
			PerPage: min(limit, MaxPerPage),
			Page:    1,
		},
	}

	result := &SearchResult{}
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		page, resp, err := c.gh.Search.Repositories(ctx, query, searchOpts)
		if err != nil {
			return nil, classify("search repositories", err)
		}

		result.Total = page.GetTotal()
		result.Incomplete = result.Incomplete || page.GetIncompleteResults()
		for _, repo := range page.Repositories {
			if len(result.Records) >= limit {
				break
			}
			result.Records = append(result.Records, NewRecord(repo))
		}

		if len(result.Records) >= limit || resp.NextPage == 0 || len(page.Repositories) == 0 {
			break
		}
		searchOpts.Page = resp.NextPage
	}

	if result.Incomplete {
		slog.Warn("Search results incomplete", "query", query, "total", result.Total)
	}
	return result, nil
}

// UserStarred lists the repositories a user has starred. An unknown user
// yields domain.ErrNotFound.
func (c *Client) UserStarred(ctx context.Context, username string) ([]domain.RawRepository, error) {
	opts := &github.ActivityListStarredOptions{
		ListOptions: github.ListOptions{PerPage: MaxPerPage, Page: 1},
	}

	var records []domain.RawRepository
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		starred, resp, err := c.gh.Activity.ListStarred(ctx, username, opts)
		if err != nil {
			return nil, classify("list starred", err)
		}

		for _, s := range starred {
			if s.Repository != nil {
				records = append(records, NewRecord(s.Repository))
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return records, nil
}

// Readme returns the decoded README of a repository given as "owner/name"
// or a repository URL. A missing repository or README yields domain.ErrNotFound.
func (c *Client) Readme(ctx context.Context, ref string) (string, error) {
	owner, name, err := ParseFullName(ref)
	if err != nil {
		return "", err
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	content, _, err := c.gh.Repositories.GetReadme(ctx, owner, name, nil)
	if err != nil {
		return "", classify("get readme", err)
	}
	if content == nil {
		return "", fmt.Errorf("get readme: %w", domain.ErrNotFound)
	}

	text, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode readme: %w", err)
	}
	return text, nil
}

// IsNotFound reports whether err is the platform's not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
