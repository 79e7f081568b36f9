package ingest

import (
	"time"
)

// PartitionResult is the outcome of one partition query.
type PartitionResult struct {
	Range StarRange
	Query string
	// Total is the number of matches the platform reported for the query.
	Total      int
	Fetched    int
	Rejected   int
	Indexed    int
	Overflowed bool
	Duration   time.Duration
	Err        error
}

// Failed reports whether the partition failed.
func (r PartitionResult) Failed() bool {
	return r.Err != nil
}

// Totals aggregates partition counters.
type Totals struct {
	Partitions int
	Fetched    int
	Rejected   int
	Indexed    int
	Failed     int
	Overflowed int
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Partitions []PartitionResult
}

// Totals sums the per-partition counters.
func (r *Report) Totals() Totals {
	t := Totals{Partitions: len(r.Partitions)}
	for _, p := range r.Partitions {
		t.Fetched += p.Fetched
		t.Rejected += p.Rejected
		t.Indexed += p.Indexed
		if p.Failed() {
			t.Failed++
		}
		if p.Overflowed {
			t.Overflowed++
		}
	}
	return t
}

// Failures returns the failed partitions in plan order.
func (r *Report) Failures() []PartitionResult {
	var failed []PartitionResult
	for _, p := range r.Partitions {
		if p.Failed() {
			failed = append(failed, p)
		}
	}
	return failed
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
