package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// LocalStorage handles saving transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SaveTranscript writes the formatted conversation as Markdown plus the JSON
// report next to it, and returns the Markdown path. result.LocalPath is set
// before the report is written.
func (ls *LocalStorage) SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error) {
	// Create dated directory structure: outputs/2025/01/23/
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	// 20250123_143022_team_sync.md
	baseFilename := BaseFilename(now, requestName)
	mdPath := filepath.Join(dateDir, baseFilename+".md")

	result.LocalPath = mdPath
	if err := os.WriteFile(mdPath, []byte(Markdown(requestName, result)), 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	metaJSON, err := json.MarshalIndent(types.NewReport(result), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(MetaPath(mdPath), metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return mdPath, nil
}

// LoadReport reads the JSON report stored next to a Markdown transcript.
func (ls *LocalStorage) LoadReport(mdPath string) (*types.Report, error) {
	data, err := os.ReadFile(MetaPath(mdPath))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var report types.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &report, nil
}

// MetaPath maps transcript.md to transcript_meta.json.
func MetaPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, filepath.Ext(mdPath)) + "_meta.json"
}

// BaseFilename is the timestamped, sanitized stem shared by local and Drive copies.
func BaseFilename(t time.Time, requestName string) string {
	return fmt.Sprintf("%s_%s", t.Format("20060102_150405"), sanitizeFilename(requestName))
}

// Markdown renders the document stored for a transcript.
func Markdown(requestName string, result *types.TranscriptionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", requestName)
	if result.Summary != "" {
		fmt.Fprintf(&b, "> %s\n\n", result.Summary)
	}
	b.WriteString(result.Conversation)
	b.WriteString("\n")
	return b.String()
}

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	result := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if runes := []rune(result); len(runes) > 100 {
		result = string(runes[:100])
	}
	if result == "" {
		result = "transcript"
	}
	return result
}
