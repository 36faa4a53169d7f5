package conversation

import (
	"strings"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// DefaultPauseThreshold is the gap in seconds that splits a speaker's words
// into separate turns.
const DefaultPauseThreshold = 1.0

// Segmenter groups words into turns as they arrive. The zero value is not
// usable; create one with NewSegmenter. A Segmenter is owned by one caller.
type Segmenter struct {
	threshold float64

	open    bool
	speaker types.Speaker
	texts   []string
	start   float64
	end     float64
}

// NewSegmenter returns a Segmenter that breaks turns on speaker change or on
// a gap strictly greater than pauseThreshold.
func NewSegmenter(pauseThreshold float64) *Segmenter {
	return &Segmenter{threshold: pauseThreshold}
}

// Push adds the next word. When the word closes the current turn, the
// completed turn is returned with ok set.
func (s *Segmenter) Push(w types.Word) (turn types.Turn, ok bool) {
	if s.open && w.Speaker == s.speaker && w.Start-s.end <= s.threshold {
		s.texts = append(s.texts, w.Text)
		s.end = w.End
		return types.Turn{}, false
	}

	turn, ok = s.Flush()
	s.open = true
	s.speaker = w.Speaker
	s.texts = append(s.texts[:0], w.Text)
	s.start = w.Start
	s.end = w.End
	return turn, ok
}

// Flush closes and returns the open turn, if any.
func (s *Segmenter) Flush() (types.Turn, bool) {
	if !s.open || len(s.texts) == 0 {
		return types.Turn{}, false
	}
	turn := types.Turn{
		Speaker: s.speaker,
		Text:    strings.Join(s.texts, " "),
		Start:   s.start,
		End:     s.end,
	}
	s.open = false
	s.texts = s.texts[:0]
	return turn, true
}

// Segment groups an ordered word sequence into conversation turns.
func Segment(words []types.Word, pauseThreshold float64) []types.Turn {
	turns := []types.Turn{}
	seg := NewSegmenter(pauseThreshold)
	for _, w := range words {
		if t, ok := seg.Push(w); ok {
			turns = append(turns, t)
		}
	}
	if t, ok := seg.Flush(); ok {
		turns = append(turns, t)
	}
	return turns
}
