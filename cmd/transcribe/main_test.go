package main

import (
	"testing"

	"github.com/codebuildervaibhav/conversation-transcription/internal/config"
)

func TestParseSpeakers(t *testing.T) {
	names, err := parseSpeakers([]string{"0=Ana", " 1 = Luis "})
	if err != nil {
		t.Fatalf("parseSpeakers: %v", err)
	}
	if names[0] != "Ana" || names[1] != "Luis" || len(names) != 2 {
		t.Errorf("names = %v", names)
	}

	for _, bad := range []string{"Ana", "x=Ana", "-1=Ana", "2="} {
		if _, err := parseSpeakers([]string{bad}); err == nil {
			t.Errorf("parseSpeakers(%q) expected error", bad)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Conversation.SpeakerNames = map[int]string{0: "Host", 2: "Guest"}

	opts := &options{
		provider: "whisper",
		language: "es",
		pause:    2.5,
		speakers: []string{"0=Ana"},
	}
	if err := applyFlags(cfg, opts); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.Transcription.Provider != "whisper" || cfg.Transcription.Language != "es" {
		t.Errorf("provider/language = %q/%q", cfg.Transcription.Provider, cfg.Transcription.Language)
	}
	if cfg.PauseThreshold() != 2.5 {
		t.Errorf("pause = %v, want 2.5", cfg.PauseThreshold())
	}
	if cfg.Conversation.SpeakerNames[0] != "Ana" || cfg.Conversation.SpeakerNames[2] != "Guest" {
		t.Errorf("speaker names = %v", cfg.Conversation.SpeakerNames)
	}
}

func TestApplyFlagsKeepsConfigPause(t *testing.T) {
	cfg := config.Default()
	if err := applyFlags(cfg, &options{pause: -1}); err != nil {
		t.Fatalf("applyFlags: %v", err)
	}
	if cfg.PauseThreshold() != 1.0 {
		t.Errorf("pause = %v, want default 1.0", cfg.PauseThreshold())
	}
	if cfg.Conversation.SpeakerNames != nil {
		t.Errorf("speaker names = %v, want nil", cfg.Conversation.SpeakerNames)
	}
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/a.mp3": true,
		"http://example.com/a.mp3":  true,
		"gs://bucket/a.wav":         true,
		"recordings/a.mp3":          false,
		"/tmp/https.mp3":            false,
	}
	for in, want := range cases {
		if got := isRemote(in); got != want {
			t.Errorf("isRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewRootCmdRequiresInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without an input argument")
	}
}
