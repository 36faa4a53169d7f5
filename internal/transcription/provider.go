package transcription

import (
	"context"
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/conversation-transcription/internal/config"
	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
)

// NewFromConfig builds the transcriber named by cfg.Transcription.Provider.
func NewFromConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (Transcriber, error) {
	lang := cfg.Transcription.Language

	switch strings.ToLower(cfg.Transcription.Provider) {
	case "deepgram":
		dg := cfg.Deepgram
		t, err := NewDeepgramTranscriber(dg.APIKey, dg.BaseURL, DeepgramOptions{
			Model:          dg.Model,
			Language:       lang,
			SmartFormat:    dg.SmartFormat,
			Punctuate:      dg.Punctuate,
			Diarize:        dg.Diarize,
			Summarize:      dg.Summarize,
			DetectTopics:   dg.DetectTopics,
			DetectLanguage: dg.DetectLanguage,
			Paragraphs:     dg.Paragraphs,
		}, nil, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "openai":
		t, err := NewOpenAITranscriber(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, lang, nil, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "google":
		gs := cfg.GoogleSpeech
		t, err := NewGoogleSpeechTranscriber(ctx, GoogleSpeechConfig{
			CredentialsFile: gs.CredentialsFile,
			LanguageCode:    lang,
			Model:           gs.Model,
			Bucket:          gs.Bucket,
			MinSpeakers:     gs.MinSpeakers,
			MaxSpeakers:     gs.MaxSpeakers,
		}, log)
		if err != nil {
			return nil, err
		}
		return t, nil
	case "whisper", "local":
		w := cfg.Whisper
		model := w.Model
		if w.ModelPath != "" {
			model = WhisperModelName(w.ModelPath)
		}
		return NewWhisperTranscriber(model, w.Python, w.Threads, w.Device, lang, cfg.Storage.TempDir, log), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.Transcription.Provider)
	}
}
