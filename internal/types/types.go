package types

import (
	"strconv"
	"time"
)

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Source type constants
const (
	SourceUpload  = "upload"
	SourceURL     = "url"
	SourceGDrive  = "gdrive"
	SourceYouTube = "youtube"
	SourceStream  = "stream"
)

// Speaker is the recognizer's speaker index for a word.
type Speaker int

// UnknownSpeaker marks words the recognizer did not attribute to a speaker.
const UnknownSpeaker Speaker = -1

func (s Speaker) String() string {
	if s == UnknownSpeaker {
		return "unknown"
	}
	return strconv.Itoa(int(s))
}

// Word is a single recognized token with timing and speaker attribution.
type Word struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Speaker    Speaker `json:"speaker"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Turn is a maximal run of words by one speaker not interrupted by a long pause.
type Turn struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// TranscriptionResult represents the output of a speech-to-text provider
// plus the conversation assembled from it.
type TranscriptionResult struct {
	JobID    string
	Provider string
	Text     string
	Language string
	Summary  string
	// Duration is the end of the last turn.
	Duration float64
	// AudioDuration is the audio length reported by the provider, if any.
	AudioDuration float64
	Words         []Word
	Turns         []Turn
	Conversation  string
	SpeakerCount  int
	WordCount     int
	SourceName    string
	ProcessedAt   time.Time
	LocalPath     string
	GDriveURL     string
}
