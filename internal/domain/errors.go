package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced repository, user or README does not exist upstream
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the platform throttled the request
	ErrRateLimited = errors.New("rate limited")

	// ErrPlatformUnavailable indicates the platform could not be reached or returned a server error
	ErrPlatformUnavailable = errors.New("platform unavailable")

	// ErrIndexUnavailable indicates the search index cannot be read or written
	ErrIndexUnavailable = errors.New("index unavailable")
)

// Partition stages reported by PartitionError.
const (
	StageFetch  = "fetch"
	StageUpsert = "upsert"
)

// PartitionError reports a failed ingestion partition.
type PartitionError struct {
	Query string
	Stage string
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %q failed at %s: %v", e.Query, e.Stage, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err was caused by platform throttling.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
