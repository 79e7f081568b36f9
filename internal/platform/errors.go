package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"github.com/sha1n/mcp-repo-radar/internal/domain"
)

// classify converts a go-github error into the domain error taxonomy so that
// no transport error leaks past the client.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%s: %w: resets at %s", op, domain.ErrRateLimited, rateErr.Rate.Reset.Time)
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w: secondary rate limit", op, domain.ErrRateLimited)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch status := respErr.Response.StatusCode; {
		case status == http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case status == http.StatusTooManyRequests || (status == http.StatusForbidden && throttled(respErr)):
			return fmt.Errorf("%s: %w: status %d", op, domain.ErrRateLimited, status)
		case status == http.StatusForbidden:
			return fmt.Errorf("%s: forbidden: %s", op, respErr.Message)
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("%s: %w: status %d", op, domain.ErrPlatformUnavailable, status)
		default:
			return fmt.Errorf("%s: unexpected status %d: %s", op, status, respErr.Message)
		}
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: %w: %v", op, domain.ErrPlatformUnavailable, err)
}

// throttled reports whether a 403 response is a rate limit rather than a
// permission failure.
func throttled(respErr *github.ErrorResponse) bool {
	if respErr.Response.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	return strings.Contains(strings.ToLower(respErr.Message), "rate limit")
}
