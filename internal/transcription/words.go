package transcription

import (
	"strings"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// rawWord is the provider-neutral shape every adapter maps its response into
// before conversion to types.Word.
type rawWord struct {
	text       string
	start      float64
	end        float64
	speaker    *int
	confidence float64
}

// toWords converts provider words into the segmenter's input. Tokens that
// are empty after trimming are dropped; a missing speaker becomes
// types.UnknownSpeaker. Timings are copied as reported.
func toWords(raw []rawWord) []types.Word {
	out := make([]types.Word, 0, len(raw))
	for _, r := range raw {
		text := strings.TrimSpace(r.text)
		if text == "" {
			continue
		}
		spk := types.UnknownSpeaker
		if r.speaker != nil && *r.speaker >= 0 {
			spk = types.Speaker(*r.speaker)
		}
		out = append(out, types.Word{
			Text:       text,
			Start:      r.start,
			End:        r.end,
			Speaker:    spk,
			Confidence: r.confidence,
		})
	}
	return out
}

func intPtr(v int) *int { return &v }
