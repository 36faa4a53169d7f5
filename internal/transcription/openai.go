package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// OpenAITranscriber calls the OpenAI audio transcription endpoint and asks
// for word-level timestamps. Whisper does not diarize, so every word is
// attributed to types.UnknownSpeaker.
type OpenAITranscriber struct {
	apiKey     string
	model      string
	baseURL    string
	language   string
	httpClient *http.Client
	log        *logger.Logger
}

func NewOpenAITranscriber(apiKey, model, baseURL, language string, httpClient *http.Client, log *logger.Logger) (*OpenAITranscriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = "whisper-1"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Minute}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OpenAITranscriber{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		httpClient: httpClient,
		log:        log.With("service", "OpenAITranscriber"),
	}, nil
}

func (o *OpenAITranscriber) Name() string { return "openai" }

func (o *OpenAITranscriber) Transcribe(ctx context.Context, src Source) (*types.TranscriptionResult, error) {
	if src.Path == "" {
		if src.URL != "" {
			return nil, fmt.Errorf("openai: %w", ErrURLUnsupported)
		}
		return nil, ErrEmptyAudio
	}

	audio, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("openai: read audio: %w", err)
	}
	language := src.Language
	if language == "" {
		language = o.language
	}

	body, contentType, err := buildOpenAIForm(o.model, language, src.Name(), audio)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return nil, fmt.Errorf("openai: build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	o.log.Debug("Sending audio to OpenAI", "source", src.Name(), "model", o.model, "bytes", len(audio))
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var or openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return nil, fmt.Errorf("openai: decode transcription response: %w", err)
	}
	return or.toResult(), nil
}

func buildOpenAIForm(model, language, filename string, audio []byte) (*bytes.Buffer, string, error) {
	if len(audio) == 0 {
		return nil, "", ErrEmptyAudio
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"model", model},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
	}
	if language != "" {
		fields = append(fields, [2]string{"language", language})
	}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("openai: write %s field: %w", f[0], err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("openai: create file form field: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("openai: write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("openai: close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

type openAIResponse struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Duration float64      `json:"duration"`
	Words    []openAIWord `json:"words"`
	Segments []struct {
		Words []openAIWord `json:"words"`
	} `json:"segments"`
}

type openAIWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (or *openAIResponse) toResult() *types.TranscriptionResult {
	words := or.Words
	if len(words) == 0 {
		for _, seg := range or.Segments {
			words = append(words, seg.Words...)
		}
	}

	raw := make([]rawWord, 0, len(words))
	for _, w := range words {
		raw = append(raw, rawWord{text: w.Word, start: w.Start, end: w.End})
	}
	return &types.TranscriptionResult{
		Provider:      "openai",
		Text:          strings.TrimSpace(or.Text),
		Language:      or.Language,
		AudioDuration: or.Duration,
		Words:         toWords(raw),
	}
}
