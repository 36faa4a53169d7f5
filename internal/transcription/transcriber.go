package transcription

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

var (
	// ErrMissingAPIKey is returned when a hosted provider has no credentials.
	ErrMissingAPIKey = errors.New("transcription: api key is required")
	// ErrURLUnsupported is returned when a provider cannot fetch remote audio itself.
	ErrURLUnsupported = errors.New("transcription: provider does not accept audio URLs")
	// ErrEmptyAudio is returned when a source has neither a path nor a URL.
	ErrEmptyAudio = errors.New("transcription: audio source is empty")
)

// Source points at the audio to transcribe: a local file or a remote URL.
type Source struct {
	Path     string
	URL      string
	Filename string
	MimeType string
	Language string
}

// Name returns the original file name of the source.
func (s Source) Name() string {
	if s.Filename != "" {
		return s.Filename
	}
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	if s.URL != "" {
		trimmed := strings.TrimRight(strings.SplitN(s.URL, "?", 2)[0], "/")
		return trimmed[strings.LastIndex(trimmed, "/")+1:]
	}
	return ""
}

// Transcriber is a pluggable speech-to-text provider.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, src Source) (*types.TranscriptionResult, error)
}

// URLTranscriber is implemented by providers that can fetch some remote
// audio URLs themselves.
type URLTranscriber interface {
	SupportsURL(rawURL string) bool
}

// SupportsURL reports whether t can transcribe rawURL without a local copy.
func SupportsURL(t Transcriber, rawURL string) bool {
	ut, ok := t.(URLTranscriber)
	return ok && ut.SupportsURL(rawURL)
}
