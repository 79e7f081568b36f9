package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 2

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest stores the outcome of ingestion runs. Partitions are keyed by
// star range so their history survives a moving activity date.
type Manifest struct {
	Version    int                       `json:"version"`
	LastRun    time.Time                 `json:"last_run"`
	LastRunID  string                    `json:"last_run_id"`
	LastTotals Totals                    `json:"last_totals"`
	Partitions map[string]PartitionState `json:"partitions"`
	mu         sync.RWMutex              `json:"-"`
}

// PartitionState stores the last outcome of a single partition.
type PartitionState struct {
	Query      string    `json:"query"`
	LastRun    time.Time `json:"last_run"`
	LastOK     time.Time `json:"last_ok,omitempty"`
	Total      int       `json:"total"`
	Fetched    int       `json:"fetched"`
	Rejected   int       `json:"rejected"`
	Indexed    int       `json:"indexed"`
	Overflowed bool      `json:"overflowed,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version:    ManifestVersion,
		Partitions: make(map[string]PartitionState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	// Older versions keyed partitions differently
	if manifest.Partitions == nil || manifest.Version != ManifestVersion {
		manifest.Partitions = make(map[string]PartitionState)
		manifest.Version = ManifestVersion
	}

	return &manifest, nil
}

// Save writes the manifest to disk atomically (write to temp, then rename).
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}

	return nil
}

// Record stores the outcome of a run. A failed partition keeps the time of
// its last successful run.
func (m *Manifest) Record(report *Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRun = report.FinishedAt
	m.LastRunID = report.RunID
	m.LastTotals = report.Totals()

	for _, p := range report.Partitions {
		key := p.Range.String()
		prev := m.Partitions[key]
		state := PartitionState{
			Query:      p.Query,
			LastRun:    report.FinishedAt,
			LastOK:     prev.LastOK,
			Total:      p.Total,
			Fetched:    p.Fetched,
			Rejected:   p.Rejected,
			Indexed:    p.Indexed,
			Overflowed: p.Overflowed,
		}
		if p.Err != nil {
			state.Error = p.Err.Error()
		} else {
			state.LastOK = report.FinishedAt
		}
		m.Partitions[key] = state
	}
}

// RemoveStalePartitions drops partitions whose range is no longer planned.
// Returns the removed range keys.
func (m *Manifest) RemoveStalePartitions(planned []StarRange) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	expected := make(map[string]bool, len(planned))
	for _, r := range planned {
		expected[r.String()] = true
	}

	var removed []string
	for key := range m.Partitions {
		if !expected[key] {
			removed = append(removed, key)
		}
	}
	for _, key := range removed {
		delete(m.Partitions, key)
	}
	sort.Strings(removed)
	return removed
}

// NeedsRun returns true if enough time has passed since the last run.
func (m *Manifest) NeedsRun(interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LastRun.IsZero() {
		return true
	}
	return time.Since(m.LastRun) >= interval
}

// GetPartitionState returns the state of the partition covering r and
// whether it exists.
func (m *Manifest) GetPartitionState(r StarRange) (PartitionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Partitions[r.String()]
	return state, ok
}

// GetPartitionsWithErrors returns the last query of each failed partition
// mapped to its error.
func (m *Manifest) GetPartitionsWithErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for _, state := range m.Partitions {
		if state.Error != "" {
			result[state.Query] = state.Error
		}
	}
	return result
}

// GetOverflowedPartitions returns the queries whose platform total exceeded
// the per-query cap on their last run, sorted.
func (m *Manifest) GetOverflowedPartitions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, state := range m.Partitions {
		if state.Overflowed {
			out = append(out, state.Query)
		}
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the run-level fields.
func (m *Manifest) Snapshot() (lastRun time.Time, runID string, totals Totals) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRun, m.LastRunID, m.LastTotals
}
