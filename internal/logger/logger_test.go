package logger

import (
	"strconv"
	"strings"
	"testing"
)

func TestBufferKeepsLastLines(t *testing.T) {
	b := NewBuffer(3)
	for i := 0; i < 5; i++ {
		_, _ = b.Write([]byte("line " + strconv.Itoa(i)))
	}
	got := b.Lines()
	if len(got) != 3 || got[0] != "line 2" || got[2] != "line 4" {
		t.Fatalf("unexpected lines: %#v", got)
	}
}

func TestNewTeesIntoSinks(t *testing.T) {
	buf := NewBuffer(10)
	log, err := New("dev", buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.With("job_id", "abc").Info("transcription finished", "turns", 3)
	log.Sync()

	lines := buf.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 buffered line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "transcription finished") || !strings.Contains(lines[0], `"job_id": "abc"`) {
		t.Fatalf("unexpected line: %q", lines[0])
	}
}
