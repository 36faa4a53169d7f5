package conversation

import (
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

func word(text string, start, end float64, spk types.Speaker) types.Word {
	return types.Word{Text: text, Start: start, End: end, Speaker: spk}
}

func TestSegment_SpeakerChangeAndPause(t *testing.T) {
	words := []types.Word{
		word("Hi", 0.0, 0.5, 0),
		word("there", 0.5, 1.0, 0),
		word("Hello", 3.0, 3.4, 1),
	}

	got := Segment(words, 1.0)
	want := []types.Turn{
		{Speaker: 0, Text: "Hi there", Start: 0.0, End: 1.0},
		{Speaker: 1, Text: "Hello", Start: 3.0, End: 3.4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected turns:\n got %#v\nwant %#v", got, want)
	}
}

func TestSegment_GapEqualToThresholdDoesNotSplit(t *testing.T) {
	words := []types.Word{
		word("one", 0.0, 1.0, 0),
		word("two", 2.0, 2.5, 0),
	}

	got := Segment(words, 1.0)
	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %d: %#v", len(got), got)
	}
	if got[0].Text != "one two" || got[0].Start != 0.0 || got[0].End != 2.5 {
		t.Fatalf("unexpected merged turn: %#v", got[0])
	}
}

func TestSegment_GapAboveThresholdSplits(t *testing.T) {
	words := []types.Word{
		word("one", 0.0, 1.0, 0),
		word("two", 2.0+1e-9, 2.5, 0),
	}

	got := Segment(words, 1.0)
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d: %#v", len(got), got)
	}
	if got[0].Speaker != got[1].Speaker {
		t.Fatalf("expected same speaker on both turns, got %v and %v", got[0].Speaker, got[1].Speaker)
	}
}

func TestSegment_OverlappingTimestampsDoNotSplit(t *testing.T) {
	words := []types.Word{
		word("a", 0.0, 2.0, 3),
		word("b", 1.5, 1.8, 3),
		word("c", 1.8, 4.0, 3),
	}

	// b starts before a ends, c starts exactly where b ends
	got := Segment(words, 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 turn, got %#v", got)
	}
	if got[0].End != 4.0 {
		t.Fatalf("expected end from last word, got %v", got[0].End)
	}
}

func TestSegment_EndComesFromLastWordNotMax(t *testing.T) {
	words := []types.Word{
		word("long", 0.0, 5.0, 0),
		word("short", 0.5, 0.7, 0),
	}

	got := Segment(words, 1.0)
	if len(got) != 1 || got[0].End != 0.7 {
		t.Fatalf("expected single turn ending at 0.7, got %#v", got)
	}
}

func TestSegment_UnknownSpeakerIsItsOwnSpeaker(t *testing.T) {
	words := []types.Word{
		word("x", 0, 0.1, types.UnknownSpeaker),
		word("y", 0.2, 0.3, types.UnknownSpeaker),
		word("z", 0.4, 0.5, 0),
	}

	got := Segment(words, 1.0)
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %#v", got)
	}
	if got[0].Speaker != types.UnknownSpeaker || got[0].Text != "x y" {
		t.Fatalf("unexpected first turn: %#v", got[0])
	}
}

func TestSegment_MalformedWordPassesThrough(t *testing.T) {
	words := []types.Word{word("odd", 5.0, 4.0, 0)}

	got := Segment(words, 1.0)
	if len(got) != 1 || got[0].Start != 5.0 || got[0].End != 4.0 {
		t.Fatalf("expected malformed timing to pass through, got %#v", got)
	}
}

func TestSegment_Empty(t *testing.T) {
	got := Segment(nil, DefaultPauseThreshold)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestSegmenter_StreamsCompletedTurns(t *testing.T) {
	seg := NewSegmenter(1.0)

	if _, ok := seg.Push(word("a", 0, 0.5, 0)); ok {
		t.Fatalf("first word must not complete a turn")
	}
	if _, ok := seg.Push(word("b", 0.6, 0.9, 0)); ok {
		t.Fatalf("same speaker word must not complete a turn")
	}
	turn, ok := seg.Push(word("c", 1.0, 1.2, 1))
	if !ok {
		t.Fatalf("speaker change must complete the open turn")
	}
	if turn.Text != "a b" || turn.Start != 0 || turn.End != 0.9 {
		t.Fatalf("unexpected completed turn: %#v", turn)
	}

	last, ok := seg.Flush()
	if !ok || last.Text != "c" {
		t.Fatalf("unexpected flushed turn: %#v ok=%v", last, ok)
	}
	if _, ok := seg.Flush(); ok {
		t.Fatalf("second flush must be empty")
	}
}

func randomWords(r *rand.Rand, n int) []types.Word {
	words := make([]types.Word, 0, n)
	t := 0.0
	for i := 0; i < n; i++ {
		t += float64(r.Intn(30)) / 10
		dur := float64(r.Intn(10)) / 10
		spk := types.Speaker(r.Intn(3)) - 1
		words = append(words, types.Word{
			Text:    "w" + strconv.Itoa(i),
			Start:   t,
			End:     t + dur,
			Speaker: spk,
		})
	}
	return words
}

// expand maps each turn back to the input words it was built from.
func expand(t *testing.T, words []types.Word, turns []types.Turn) [][]types.Word {
	t.Helper()
	groups := make([][]types.Word, 0, len(turns))
	i := 0
	for _, turn := range turns {
		n := len(strings.Fields(turn.Text))
		if i+n > len(words) {
			t.Fatalf("turns hold more words than the input")
		}
		groups = append(groups, words[i:i+n])
		i += n
	}
	if i != len(words) {
		t.Fatalf("turns hold %d words, input has %d", i, len(words))
	}
	return groups
}

func TestSegment_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	thresholds := []float64{0, 0.5, 1.0, 2.0}

	for iter := 0; iter < 200; iter++ {
		words := randomWords(r, 1+r.Intn(40))
		threshold := thresholds[iter%len(thresholds)]
		turns := Segment(words, threshold)
		groups := expand(t, words, turns)

		for gi, g := range groups {
			turn := turns[gi]
			texts := make([]string, 0, len(g))
			for _, w := range g {
				if w.Speaker != turn.Speaker {
					t.Fatalf("iter %d: turn %d mixes speakers", iter, gi)
				}
				texts = append(texts, w.Text)
			}
			if strings.Join(texts, " ") != turn.Text {
				t.Fatalf("iter %d: turn %d text %q does not match words", iter, gi, turn.Text)
			}
			if turn.Start != g[0].Start || turn.End != g[len(g)-1].End {
				t.Fatalf("iter %d: turn %d bounds %v-%v do not match words", iter, gi, turn.Start, turn.End)
			}
		}

		for i := 1; i < len(turns); i++ {
			a, b := turns[i-1], turns[i]
			if b.Speaker == a.Speaker && !(b.Start-a.End > threshold) {
				t.Fatalf("iter %d: turns %d and %d should have merged: %#v %#v", iter, i-1, i, a, b)
			}
		}

		var flattened []types.Word
		for _, g := range groups {
			flattened = append(flattened, g...)
		}
		if again := Segment(flattened, threshold); !reflect.DeepEqual(again, turns) {
			t.Fatalf("iter %d: re-segmenting expanded words changed the turns", iter)
		}
	}
}
