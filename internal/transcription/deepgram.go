package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// DeepgramOptions are the prerecorded /listen query options.
type DeepgramOptions struct {
	Model          string
	Language       string
	SmartFormat    bool
	Punctuate      bool
	Diarize        bool
	Summarize      bool
	DetectTopics   bool
	DetectLanguage bool
	Paragraphs     bool
}

// DeepgramTranscriber calls Deepgram's prerecorded REST API.
type DeepgramTranscriber struct {
	apiKey     string
	baseURL    string
	opts       DeepgramOptions
	httpClient *http.Client
	log        *logger.Logger
}

// NewDeepgramTranscriber creates a Deepgram client. baseURL defaults to the
// public v1 endpoint.
func NewDeepgramTranscriber(apiKey, baseURL string, opts DeepgramOptions, httpClient *http.Client, log *logger.Logger) (*DeepgramTranscriber, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("deepgram: %w", ErrMissingAPIKey)
	}
	if baseURL == "" {
		baseURL = "https://api.deepgram.com/v1"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Minute}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &DeepgramTranscriber{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		opts:       opts,
		httpClient: httpClient,
		log:        log.With("service", "DeepgramTranscriber"),
	}, nil
}

func (d *DeepgramTranscriber) Name() string { return "deepgram" }

// SupportsURL reports true for http(s) URLs; Deepgram fetches them itself.
func (d *DeepgramTranscriber) SupportsURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (d *DeepgramTranscriber) Transcribe(ctx context.Context, src Source) (*types.TranscriptionResult, error) {
	var (
		body        io.Reader
		contentType string
	)
	switch {
	case src.Path != "":
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("deepgram: open audio: %w", err)
		}
		defer f.Close()
		body = f
		contentType = audioContentType(src)
	case src.URL != "":
		payload, err := json.Marshal(map[string]string{"url": src.URL})
		if err != nil {
			return nil, fmt.Errorf("deepgram: encode url payload: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	default:
		return nil, ErrEmptyAudio
	}

	endpoint := d.baseURL + "/listen?" + d.query(src.Language).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentType)

	d.log.Debug("Sending audio to Deepgram", "source", src.Name(), "model", d.opts.Model)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deepgram http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var dr deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("deepgram: decode response: %w", err)
	}
	return dr.toResult(), nil
}

func (d *DeepgramTranscriber) query(language string) url.Values {
	q := url.Values{}
	if d.opts.Model != "" {
		q.Set("model", d.opts.Model)
	}
	if language == "" {
		language = d.opts.Language
	}
	if language != "" {
		q.Set("language", language)
	}
	flags := []struct {
		name string
		on   bool
	}{
		{"smart_format", d.opts.SmartFormat},
		{"punctuate", d.opts.Punctuate},
		{"diarize", d.opts.Diarize},
		{"detect_topics", d.opts.DetectTopics},
		{"detect_language", d.opts.DetectLanguage},
		{"paragraphs", d.opts.Paragraphs},
	}
	for _, f := range flags {
		if f.on {
			q.Set(f.name, "true")
		}
	}
	if d.opts.Summarize {
		q.Set("summarize", "v2")
	}
	return q
}

func audioContentType(src Source) string {
	if src.MimeType != "" {
		return src.MimeType
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(src.Name()))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string         `json:"transcript"`
				Words      []deepgramWord `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Summary *struct {
			Short string `json:"short"`
		} `json:"summary,omitempty"`
	} `json:"results"`
}

type deepgramWord struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *int    `json:"speaker,omitempty"`
}

func (dr *deepgramResponse) toResult() *types.TranscriptionResult {
	result := &types.TranscriptionResult{
		Provider:      "deepgram",
		AudioDuration: dr.Metadata.Duration,
		Words:         []types.Word{},
	}
	if dr.Results.Summary != nil {
		result.Summary = dr.Results.Summary.Short
	}
	if len(dr.Results.Channels) == 0 {
		return result
	}

	ch := dr.Results.Channels[0]
	result.Language = ch.DetectedLanguage
	if len(ch.Alternatives) == 0 {
		return result
	}

	alt := ch.Alternatives[0]
	result.Text = strings.TrimSpace(alt.Transcript)
	raw := make([]rawWord, 0, len(alt.Words))
	for _, w := range alt.Words {
		raw = append(raw, rawWord{
			text:       w.Word,
			start:      w.Start,
			end:        w.End,
			speaker:    w.Speaker,
			confidence: w.Confidence,
		})
	}
	result.Words = toWords(raw)
	return result
}
