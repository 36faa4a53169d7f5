package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
)

// JobPruner forgets finished jobs older than maxAge.
type JobPruner interface {
	PruneJobs(maxAge time.Duration) int
}

// Scheduler handles cleanup of temporary files and finished jobs
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	pruner   JobPruner
	log      *logger.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler. pruner may be nil.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, pruner JobPruner, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		pruner:   pruner,
		log:      log.With("service", "CleanupScheduler"),
		stopChan: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler
func (s *Scheduler) Start() {
	// Run initial cleanup on startup
	s.log.Info("Running initial temp file cleanup")
	s.runOnce()

	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.log.Info("Cleanup scheduler started", "interval", s.interval, "max_age", s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.log.Info("Cleanup scheduler stopped")
	})
}

func (s *Scheduler) runOnce() {
	s.cleanOldFiles(time.Now())
	if s.pruner != nil {
		if n := s.pruner.PruneJobs(s.maxAge); n > 0 {
			s.log.Info("Pruned finished jobs", "count", n)
		}
	}
}

// cleanOldFiles removes files older than maxAge from the temp directory
func (s *Scheduler) cleanOldFiles(now time.Time) (deletedCount int, deletedSize int64) {
	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.log.Warn("Failed to delete old file", "path", path, "error", err)
			return nil
		}
		deletedCount++
		deletedSize += size
		s.log.Debug("Deleted old temp file", "file", filepath.Base(path), "age", age.Round(time.Hour), "size_kb", size/1024)
		return nil
	})
	if err != nil {
		s.log.Error("Error during cleanup", "error", err)
	}

	if deletedCount > 0 {
		s.log.Info("Cleanup complete", "deleted", deletedCount, "freed_mb", float64(deletedSize)/(1024*1024))
	}
	return deletedCount, deletedSize
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
