package conversation

import (
	"testing"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

func TestRender(t *testing.T) {
	turns := []types.Turn{
		{Speaker: 0, Text: "Hola, ¿cómo estás?", Start: 0.4, End: 1.9},
		{Speaker: 1, Text: "Bien, gracias.", Start: 75.99, End: 77.0},
		{Speaker: 2, Text: "Sin nombre.", Start: 3725.2, End: 3727},
		{Speaker: types.UnknownSpeaker, Text: "...", Start: 59.999, End: 60.5},
	}
	names := SpeakerNames{0: "Martín", 1: "Juan"}

	got := Render(turns, names)
	want := "[00:00] **Martín**: Hola, ¿cómo estás?\n\n" +
		"[01:15] **Juan**: Bien, gracias.\n\n" +
		"[62:05] **2**: Sin nombre.\n\n" +
		"[00:59] **unknown**: ..."
	if got != want {
		t.Fatalf("unexpected render:\n got %q\nwant %q", got, want)
	}
}

func TestRender_Empty(t *testing.T) {
	if got := Render(nil, SpeakerNames{0: "A"}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := Render(Segment(nil, DefaultPauseThreshold), nil); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestRender_NilNames(t *testing.T) {
	got := Render([]types.Turn{{Speaker: 4, Text: "hi", Start: 61}}, nil)
	if got != "[01:01] **4**: hi" {
		t.Fatalf("unexpected render: %q", got)
	}
}

func TestTimestamp(t *testing.T) {
	cases := map[float64]string{
		0:      "[00:00]",
		9.99:   "[00:09]",
		60:     "[01:00]",
		599.5:  "[09:59]",
		6000.1: "[100:00]",
	}
	for in, want := range cases {
		if got := Timestamp(in); got != want {
			t.Fatalf("Timestamp(%v) = %q, want %q", in, got, want)
		}
	}
}
