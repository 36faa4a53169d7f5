package transcription

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

func wordInfo(w string, start, end time.Duration, tag int32) *speechpb.WordInfo {
	return &speechpb.WordInfo{
		Word:       w,
		StartTime:  durationpb.New(start),
		EndTime:    durationpb.New(end),
		SpeakerTag: tag,
		Confidence: 0.5,
	}
}

func diarizedResponse() *speechpb.LongRunningRecognizeResponse {
	return &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{{
					Transcript: "hello there",
					Words: []*speechpb.WordInfo{
						wordInfo("hello", 0, 500*time.Millisecond, 0),
						wordInfo("there", 500*time.Millisecond, time.Second, 0),
					},
				}},
				LanguageCode:  "en-us",
				ResultEndTime: durationpb.New(time.Second),
			},
			{
				Alternatives: []*speechpb.SpeechRecognitionAlternative{{
					Transcript: "",
					Words: []*speechpb.WordInfo{
						wordInfo("hello", 0, 500*time.Millisecond, 1),
						wordInfo("there", 500*time.Millisecond, time.Second, 1),
						wordInfo("hi", 3*time.Second, 3400*time.Millisecond, 2),
					},
				}},
				ResultEndTime: durationpb.New(3400 * time.Millisecond),
			},
		},
	}
}

func TestParseSpeechResponse_Diarized(t *testing.T) {
	t.Parallel()

	res := parseSpeechResponse(diarizedResponse(), true)
	if res.Text != "hello there" || res.Language != "en-us" || res.AudioDuration != 3.4 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if len(res.Words) != 3 {
		t.Fatalf("expected words from the final diarized result, got %#v", res.Words)
	}
	if res.Words[0].Speaker != 0 || res.Words[2].Speaker != 1 {
		t.Fatalf("speaker tags should be zero based: %#v", res.Words)
	}
	if res.Words[2].Start != 3 || res.Words[2].End != 3.4 {
		t.Fatalf("unexpected timing: %#v", res.Words[2])
	}
}

func TestParseSpeechResponse_NoDiarization(t *testing.T) {
	t.Parallel()

	res := parseSpeechResponse(diarizedResponse(), false)
	if len(res.Words) != 5 {
		t.Fatalf("expected all words, got %d", len(res.Words))
	}
	if res.Words[0].Speaker != types.UnknownSpeaker {
		t.Fatalf("tag 0 should be unknown, got %#v", res.Words[0])
	}
	if empty := parseSpeechResponse(nil, true); len(empty.Words) != 0 || empty.Text != "" {
		t.Fatalf("unexpected empty result: %#v", empty)
	}
}

func TestInferSpeechEncoding(t *testing.T) {
	t.Parallel()

	cases := []struct {
		mime, name string
		want       speechpb.RecognitionConfig_AudioEncoding
	}{
		{"", "a.wav", speechpb.RecognitionConfig_LINEAR16},
		{"audio/flac", "", speechpb.RecognitionConfig_FLAC},
		{"audio/mpeg", "x", speechpb.RecognitionConfig_MP3},
		{"", "a.opus", speechpb.RecognitionConfig_OGG_OPUS},
		{"", "a.webm", speechpb.RecognitionConfig_WEBM_OPUS},
		{"", "a.m4a", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	}
	for _, c := range cases {
		if got := inferSpeechEncoding(c.mime, c.name); got != c.want {
			t.Fatalf("inferSpeechEncoding(%q, %q) = %v, want %v", c.mime, c.name, got, c.want)
		}
	}
}

type fakeRecognizer struct {
	errs  []error
	calls int
	last  *speechpb.LongRunningRecognizeRequest
}

func (f *fakeRecognizer) recognize(_ context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	f.calls++
	f.last = req
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return diarizedResponse(), nil
}

type fakeStager struct {
	cleaned bool
}

func (f *fakeStager) stage(_ context.Context, localPath string) (string, func(), error) {
	return "gs://bucket/" + filepath.Base(localPath), func() { f.cleaned = true }, nil
}

func TestGoogleTranscribe_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{errs: []error{status.Error(codes.Unavailable, "busy")}}
	g := &GoogleSpeechTranscriber{
		cfg:        GoogleSpeechConfig{LanguageCode: "es-ES", MaxSpeakers: 2},
		rec:        rec,
		maxRetries: 2,
		backoff:    time.Millisecond,
		log:        logger.Nop(),
	}

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	res, err := g.Transcribe(context.Background(), Source{Path: path})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if rec.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", rec.calls)
	}
	if len(res.Words) != 3 {
		t.Fatalf("unexpected words: %#v", res.Words)
	}
	cfg := rec.last.GetConfig()
	if cfg.GetLanguageCode() != "es-ES" || cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if !cfg.GetDiarizationConfig().GetEnableSpeakerDiarization() || cfg.GetDiarizationConfig().GetMaxSpeakerCount() != 2 {
		t.Fatalf("diarization not configured: %v", cfg.GetDiarizationConfig())
	}
	if string(rec.last.GetAudio().GetContent()) != "pcm" {
		t.Fatalf("expected inline audio content")
	}
}

func TestGoogleTranscribe_PermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{errs: []error{status.Error(codes.InvalidArgument, "bad audio")}}
	g := &GoogleSpeechTranscriber{rec: rec, maxRetries: 3, backoff: time.Millisecond, log: logger.Nop()}

	if _, err := g.Transcribe(context.Background(), Source{URL: "gs://b/a.flac"}); err == nil {
		t.Fatalf("expected error")
	}
	if rec.calls != 1 {
		t.Fatalf("expected a single call, got %d", rec.calls)
	}
	if rec.last.GetAudio().GetUri() != "gs://b/a.flac" {
		t.Fatalf("expected gs URI audio, got %v", rec.last.GetAudio())
	}
}

func TestGoogleTranscribe_StagesToBucket(t *testing.T) {
	t.Parallel()

	rec := &fakeRecognizer{}
	st := &fakeStager{}
	g := &GoogleSpeechTranscriber{rec: rec, stage: st, log: logger.Nop()}

	if _, err := g.Transcribe(context.Background(), Source{Path: "/tmp/call.wav"}); err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if rec.last.GetAudio().GetUri() != "gs://bucket/call.wav" {
		t.Fatalf("expected staged URI, got %v", rec.last.GetAudio())
	}
	if !st.cleaned {
		t.Fatalf("staged object should be cleaned up")
	}
	if _, err := g.Transcribe(context.Background(), Source{URL: "https://example.com/a.wav"}); err == nil {
		t.Fatalf("expected https URL to be rejected")
	}
}
