package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/sha1n/mcp-repo-radar/internal/config"
)

// LockFilename is the name of the ingestion lock file
const LockFilename = "ingest.lock"

// ErrRunInProgress is returned when another ingestion run holds the lock.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Status summarizes the ingestion state for callers.
type Status struct {
	Enabled    bool
	Running    bool
	LastRun    time.Time
	LastRunID  string
	Totals     Totals
	NextRun    time.Time
	Failures   map[string]string
	Overflowed []string
}

// Service plans and schedules ingestion runs and records their outcome.
type Service struct {
	settings     *config.IngestSettings
	fetcher      *Fetcher
	manifest     *Manifest
	manifestPath string
	lock         *flock.Flock
	running      atomic.Bool
	now          func() time.Time

	mu      sync.RWMutex
	nextRun time.Time
	done    chan struct{}
}

// NewService creates an ingestion service keeping its lock and manifest in baseDir.
func NewService(settings *config.IngestSettings, baseDir string, searcher Searcher, store Upserter) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	manifestPath := filepath.Join(baseDir, ManifestFilename)
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	return &Service{
		settings:     settings,
		fetcher:      NewFetcher(searcher, store, NewQualityFilter(), settings.Workers),
		manifest:     manifest,
		manifestPath: manifestPath,
		lock:         flock.New(filepath.Join(baseDir, LockFilename)),
		now:          time.Now,
	}, nil
}

// Plan builds the partition plan for a run starting now.
func (s *Service) Plan() (Plan, error) {
	pushedAfter, err := s.settings.PushedAfterDate(s.now())
	if err != nil {
		return Plan{}, err
	}
	plan := DefaultPlan(pushedAfter)
	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// RunOnce executes a single ingestion run. Partition failures are part of the
// returned report; an error means the run did not happen or its outcome could
// not be recorded.
func (s *Service) RunOnce(ctx context.Context) (*Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	locked, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire ingestion lock: %w", err)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Error("Failed to release ingestion lock", "error", err)
		}
	}()

	plan, err := s.Plan()
	if err != nil {
		return nil, fmt.Errorf("invalid partition plan: %w", err)
	}
	parts := plan.Partitions()
	planned := make([]StarRange, len(parts))
	for i, part := range parts {
		planned[i] = part.Range
	}

	for _, key := range s.manifest.RemoveStalePartitions(planned) {
		slog.Info("Dropping partition no longer planned", "range", key)
	}

	report := s.fetcher.Run(ctx, parts)
	s.manifest.Record(report)
	if err := s.manifest.Save(s.manifestPath); err != nil {
		return report, fmt.Errorf("failed to save manifest: %w", err)
	}
	return report, nil
}

// Start runs ingestion in the background every interval until ctx is done.
// When on_start is set and the last recorded run is older than the interval,
// the first run starts immediately.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return
	}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)

		if s.settings.OnStart && s.manifest.NeedsRun(s.settings.Interval) {
			s.runScheduled(ctx)
		}

		ticker := time.NewTicker(s.settings.Interval)
		defer ticker.Stop()
		s.setNextRun(s.now().Add(s.settings.Interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runScheduled(ctx)
				s.setNextRun(s.now().Add(s.settings.Interval))
			}
		}
	}()
}

// Wait blocks until the background loop started by Start exits.
func (s *Service) Wait() {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (s *Service) runScheduled(ctx context.Context) {
	report, err := s.RunOnce(ctx)
	if errors.Is(err, ErrRunInProgress) {
		slog.Info("Skipping scheduled ingestion, a run is already in progress")
		return
	}
	if err != nil {
		slog.Error("Scheduled ingestion failed", "error", err)
		return
	}
	if failed := report.Failures(); len(failed) > 0 {
		slog.Warn("Ingestion finished with failed partitions", "run_id", report.RunID, "failed", len(failed))
	}
}

func (s *Service) setNextRun(t time.Time) {
	s.mu.Lock()
	s.nextRun = t
	s.mu.Unlock()
}

// Status reports the last recorded run and whether a run is in progress.
func (s *Service) Status() Status {
	lastRun, runID, totals := s.manifest.Snapshot()
	s.mu.RLock()
	next := s.nextRun
	s.mu.RUnlock()
	return Status{
		Enabled:    s.settings.Enabled,
		Running:    s.running.Load(),
		LastRun:    lastRun,
		LastRunID:  runID,
		Totals:     totals,
		NextRun:    next,
		Failures:   s.manifest.GetPartitionsWithErrors(),
		Overflowed: s.manifest.GetOverflowedPartitions(),
	}
}
