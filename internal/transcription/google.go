package transcription

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// GoogleSpeechConfig configures recognition requests.
type GoogleSpeechConfig struct {
	CredentialsFile string
	LanguageCode    string
	Model           string
	// Bucket stages local audio in GCS before recognition; inline bytes are
	// used when empty.
	Bucket      string
	MinSpeakers int
	MaxSpeakers int
}

type recognizer interface {
	recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
}

type stager interface {
	stage(ctx context.Context, localPath string) (uri string, cleanup func(), err error)
}

// GoogleSpeechTranscriber uses Cloud Speech-to-Text long running recognition
// with word offsets and speaker diarization.
type GoogleSpeechTranscriber struct {
	cfg        GoogleSpeechConfig
	rec        recognizer
	stage      stager
	closers    []io.Closer
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

// NewGoogleSpeechTranscriber dials the Speech API (and GCS when a bucket is
// configured) using the credentials file, GOOGLE_APPLICATION_CREDENTIALS_JSON,
// or application default credentials.
func NewGoogleSpeechTranscriber(ctx context.Context, cfg GoogleSpeechConfig, log *logger.Logger) (*GoogleSpeechTranscriber, error) {
	if log == nil {
		log = logger.Nop()
	}
	opts := googleClientOptions(cfg.CredentialsFile)

	sc, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	g := &GoogleSpeechTranscriber{
		cfg:        cfg,
		rec:        speechRecognizer{client: sc},
		closers:    []io.Closer{sc},
		maxRetries: 4,
		backoff:    750 * time.Millisecond,
		log:        log.With("service", "GoogleSpeechTranscriber"),
	}

	if cfg.Bucket != "" {
		st, err := storage.NewClient(ctx, append(opts, option.WithScopes(storage.ScopeReadWrite))...)
		if err != nil {
			_ = sc.Close()
			return nil, fmt.Errorf("storage client: %w", err)
		}
		g.stage = gcsStager{client: st, bucket: cfg.Bucket}
		g.closers = append(g.closers, st)
	}
	return g, nil
}

func googleClientOptions(credentialsFile string) []option.ClientOption {
	creds := strings.TrimSpace(credentialsFile)
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (g *GoogleSpeechTranscriber) Name() string { return "google" }

// SupportsURL accepts gs:// URIs, which the API reads directly.
func (g *GoogleSpeechTranscriber) SupportsURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "gs://")
}

func (g *GoogleSpeechTranscriber) Close() error {
	var first error
	for _, c := range g.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (g *GoogleSpeechTranscriber) Transcribe(ctx context.Context, src Source) (*types.TranscriptionResult, error) {
	audio := &speechpb.RecognitionAudio{}
	uri := ""

	switch {
	case src.URL != "":
		if !g.SupportsURL(src.URL) {
			return nil, fmt.Errorf("google: %w", ErrURLUnsupported)
		}
		uri = src.URL
	case src.Path != "" && g.stage != nil:
		staged, cleanup, err := g.stage.stage(ctx, src.Path)
		if err != nil {
			return nil, fmt.Errorf("google: stage audio: %w", err)
		}
		defer cleanup()
		uri = staged
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("google: read audio: %w", err)
		}
		audio.AudioSource = &speechpb.RecognitionAudio_Content{Content: data}
	default:
		return nil, ErrEmptyAudio
	}
	if uri != "" {
		audio.AudioSource = &speechpb.RecognitionAudio_Uri{Uri: uri}
	}

	req := &speechpb.LongRunningRecognizeRequest{
		Config: g.recognitionConfig(src),
		Audio:  audio,
	}

	g.log.Debug("Starting long running recognition", "source", src.Name(), "uri", uri)
	resp, err := g.retry(ctx, func() (*speechpb.LongRunningRecognizeResponse, error) {
		return g.rec.recognize(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("speech longrunningrecognize: %w", err)
	}
	return parseSpeechResponse(resp, true), nil
}

func (g *GoogleSpeechTranscriber) recognitionConfig(src Source) *speechpb.RecognitionConfig {
	lang := src.Language
	if lang == "" {
		lang = g.cfg.LanguageCode
	}
	if lang == "" {
		lang = "en-US"
	}

	return &speechpb.RecognitionConfig{
		LanguageCode:               lang,
		Model:                      g.cfg.Model,
		EnableAutomaticPunctuation: true,
		EnableWordTimeOffsets:      true,
		EnableWordConfidence:       true,
		Encoding:                   inferSpeechEncoding(src.MimeType, src.Name()),
		DiarizationConfig: &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          int32(max(g.cfg.MinSpeakers, 0)),
			MaxSpeakerCount:          int32(max(g.cfg.MaxSpeakers, 0)),
		},
	}
}

func inferSpeechEncoding(mimeType, name string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case strings.Contains(m, "wav") || ext == ".wav":
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac") || ext == ".flac":
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mp3") || strings.Contains(m, "mpeg") || ext == ".mp3":
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "ogg") || ext == ".ogg" || ext == ".opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "webm") || ext == ".webm":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

// parseSpeechResponse maps recognition results into words. With diarization
// the final result repeats every word with its speaker tag, so only that
// result's words are used.
func parseSpeechResponse(resp *speechpb.LongRunningRecognizeResponse, diarize bool) *types.TranscriptionResult {
	out := &types.TranscriptionResult{Provider: "google", Words: []types.Word{}}
	if resp == nil || len(resp.Results) == 0 {
		return out
	}

	var full strings.Builder
	var perResult [][]*speechpb.WordInfo
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		if out.Language == "" {
			out.Language = r.LanguageCode
		}
		if end := durToSec(r.ResultEndTime); end > out.AudioDuration {
			out.AudioDuration = end
		}
		if len(alt.Words) > 0 {
			perResult = append(perResult, alt.Words)
		}
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		if full.Len() > 0 {
			full.WriteString(" ")
		}
		full.WriteString(strings.TrimSpace(alt.Transcript))
	}
	out.Text = full.String()

	var infos []*speechpb.WordInfo
	if diarize && len(perResult) > 0 {
		infos = perResult[len(perResult)-1]
	} else {
		for _, ws := range perResult {
			infos = append(infos, ws...)
		}
	}

	raw := make([]rawWord, 0, len(infos))
	for _, w := range infos {
		if w == nil {
			continue
		}
		var spk *int
		if w.SpeakerTag > 0 {
			spk = intPtr(int(w.SpeakerTag) - 1)
		}
		raw = append(raw, rawWord{
			text:       w.Word,
			start:      durToSec(w.StartTime),
			end:        durToSec(w.EndTime),
			speaker:    spk,
			confidence: float64(w.Confidence),
		})
	}
	out.Words = toWords(raw)
	return out
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}

func (g *GoogleSpeechTranscriber) retry(ctx context.Context, fn func() (*speechpb.LongRunningRecognizeResponse, error)) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := g.backoff
	var last error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == g.maxRetries {
			break
		}
		g.log.Warn("Speech request failed, retrying", "attempt", attempt+1, "code", code.String())
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
	}
	return nil, last
}

type speechRecognizer struct {
	client *speech.Client
}

func (s speechRecognizer) recognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	op, err := s.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return op.Wait(ctx)
}

type gcsStager struct {
	client *storage.Client
	bucket string
}

func (s gcsStager) stage(ctx context.Context, localPath string) (string, func(), error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	key := path.Join("transcription-staging", uuid.New().String()+filepath.Ext(localPath))
	obj := s.client.Bucket(s.bucket).Object(key)
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", nil, fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", nil, fmt.Errorf("finalize %s: %w", key, err)
	}

	cleanup := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = obj.Delete(dctx)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), cleanup, nil
}
