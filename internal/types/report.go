package types

import "time"

// Report is the JSON document written next to each transcript and printed
// by the CLI.
type Report struct {
	JobID                 string         `json:"job_id,omitempty"`
	Transcript            string         `json:"transcript"`
	DetectedLanguage      string         `json:"detected_language"`
	FormattedConversation string         `json:"formatted_conversation"`
	Summary               string         `json:"summary,omitempty"`
	Turns                 []Turn         `json:"turns"`
	Metadata              ReportMetadata `json:"metadata"`
}

// ReportMetadata describes where a transcript came from.
type ReportMetadata struct {
	TotalDuration float64   `json:"total_duration"`
	AudioDuration float64   `json:"audio_duration,omitempty"`
	NumSpeakers   int       `json:"num_speakers"`
	OriginalFile  string    `json:"original_file"`
	Provider      string    `json:"provider"`
	WordCount     int       `json:"word_count"`
	TurnCount     int       `json:"turn_count"`
	ProcessedAt   time.Time `json:"processed_at"`
	LocalPath     string    `json:"local_path,omitempty"`
	GDriveURL     string    `json:"gdrive_url,omitempty"`
}

// NewReport builds the serializable report for a result.
func NewReport(r *TranscriptionResult) Report {
	turns := r.Turns
	if turns == nil {
		turns = []Turn{}
	}
	return Report{
		JobID:                 r.JobID,
		Transcript:            r.Text,
		DetectedLanguage:      r.Language,
		FormattedConversation: r.Conversation,
		Summary:               r.Summary,
		Turns:                 turns,
		Metadata: ReportMetadata{
			TotalDuration: r.Duration,
			AudioDuration: r.AudioDuration,
			NumSpeakers:   r.SpeakerCount,
			OriginalFile:  r.SourceName,
			Provider:      r.Provider,
			WordCount:     r.WordCount,
			TurnCount:     len(r.Turns),
			ProcessedAt:   r.ProcessedAt,
			LocalPath:     r.LocalPath,
			GDriveURL:     r.GDriveURL,
		},
	}
}
