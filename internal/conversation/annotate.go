package conversation

import (
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// Options controls how a transcription result is turned into a conversation.
type Options struct {
	PauseThreshold float64
	SpeakerNames   SpeakerNames
}

// DefaultOptions uses the default pause threshold and no speaker names.
func DefaultOptions() Options {
	return Options{PauseThreshold: DefaultPauseThreshold}
}

// Annotate segments res.Words into turns and fills the derived fields of res.
func Annotate(res *types.TranscriptionResult, opts Options) {
	if res == nil {
		return
	}
	res.Turns = Segment(res.Words, opts.PauseThreshold)
	res.Conversation = Render(res.Turns, opts.SpeakerNames)
	res.SpeakerCount = CountSpeakers(res.Turns)
	res.WordCount = len(res.Words)
	res.Duration = 0
	if len(res.Turns) > 0 {
		res.Duration = res.Turns[len(res.Turns)-1].End
	}
}

// CountSpeakers returns the number of distinct speakers across turns.
func CountSpeakers(turns []types.Turn) int {
	seen := make(map[types.Speaker]struct{}, 2)
	for _, t := range turns {
		seen[t.Speaker] = struct{}{}
	}
	return len(seen)
}
