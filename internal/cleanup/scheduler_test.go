package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type countingPruner struct {
	calls  int
	maxAge time.Duration
}

func (p *countingPruner) PruneJobs(maxAge time.Duration) int {
	p.calls++
	p.maxAge = maxAge
	return 0
}

func TestCleanOldFiles(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "old.wav")
	newFile := filepath.Join(dir, "nested", "new.wav")
	if err := os.MkdirAll(filepath.Dir(newFile), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{oldFile, newFile} {
		if err := os.WriteFile(p, []byte("audio"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	past := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := NewScheduler(dir, 30, 24, nil, nil)
	count, size := s.cleanOldFiles(time.Now())
	if count != 1 || size != 5 {
		t.Fatalf("deleted %d files (%d bytes), want 1 (5)", count, size)
	}
	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Fatalf("old file should be removed")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Fatalf("new file should remain: %v", err)
	}
}

func TestStartPrunesJobs(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(t.TempDir(), 60, 2, pruner, nil)
	s.Start()
	s.Stop()
	s.Stop()

	if pruner.calls != 1 || pruner.maxAge != 2*time.Hour {
		t.Fatalf("unexpected prune calls %d (%v)", pruner.calls, pruner.maxAge)
	}
}
