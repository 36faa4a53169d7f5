package transcription

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

func TestParseWhisperOutput(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"text": " Hello there. General Kenobi.",
		"language": "en",
		"segments": [
			{"id": 0, "start": 0.0, "end": 1.2, "text": " Hello there.", "words": [
				{"word": " Hello", "start": 0.0, "end": 0.5, "probability": 0.9},
				{"word": " there.", "start": 0.5, "end": 1.2, "probability": 0.8}
			]},
			{"id": 1, "start": 3.0, "end": 4.5, "text": " General Kenobi.", "words": [
				{"word": " General", "start": 3.0, "end": 3.6, "probability": 0.7},
				{"word": " Kenobi.", "start": 3.6, "end": 4.5, "probability": 0.6}
			]}
		]
	}`)

	res, err := parseWhisperOutput(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Provider != "whisper" || res.Language != "en" || res.AudioDuration != 4.5 {
		t.Fatalf("unexpected result: %#v", res)
	}
	if res.Text != "Hello there. General Kenobi." {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if len(res.Words) != 4 || res.Words[2].Text != "General" || res.Words[2].Confidence != 0.7 {
		t.Fatalf("unexpected words: %#v", res.Words)
	}
	for _, w := range res.Words {
		if w.Speaker != types.UnknownSpeaker {
			t.Fatalf("whisper does not diarize, got %#v", w)
		}
	}

	if _, err := parseWhisperOutput([]byte("{")); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestWhisperModelName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"models/ggml-small.bin":  "small",
		"models/ggml-medium.bin": "medium",
		"tiny":                   "tiny",
		"models/custom.bin":      "small",
	}
	for in, want := range cases {
		if got := WhisperModelName(in); got != want {
			t.Fatalf("WhisperModelName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWhisperArgs(t *testing.T) {
	t.Parallel()

	wt := NewWhisperTranscriber("base", "", 4, "auto", "es", t.TempDir(), nil)
	args := wt.args("/abs/a.wav", "/out", "")

	if args[0] != "-m" || args[1] != "whisper" || args[2] != "/abs/a.wav" {
		t.Fatalf("unexpected args prefix: %v", args)
	}
	for _, want := range []string{"--word_timestamps", "--language", "es", "--threads", "4"} {
		if !slices.Contains(args, want) {
			t.Fatalf("missing %q in %v", want, args)
		}
	}
	if slices.Contains(args, "--device") {
		t.Fatalf("auto device should not be passed: %v", args)
	}

	args = wt.args("/abs/a.wav", "/out", "fr")
	if i := slices.Index(args, "--language"); i < 0 || args[i+1] != "fr" {
		t.Fatalf("per-source language should win: %v", args)
	}
}

func TestWhisperRejectsURL(t *testing.T) {
	t.Parallel()

	wt := NewWhisperTranscriber("small", "python", 0, "", "", t.TempDir(), nil)
	if _, err := wt.Transcribe(context.Background(), Source{URL: "https://example.com/a.wav"}); !errors.Is(err, ErrURLUnsupported) {
		t.Fatalf("expected ErrURLUnsupported, got %v", err)
	}
}
