package conversation

import (
	"fmt"
	"math"
	"strings"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// SpeakerNames maps speaker indices to display names.
type SpeakerNames map[types.Speaker]string

// Name returns the display name for s, falling back to the speaker id.
func (n SpeakerNames) Name(s types.Speaker) string {
	if name, ok := n[s]; ok {
		return name
	}
	return s.String()
}

// Render formats turns as "[MM:SS] **Name**: text" lines separated by a
// blank line.
func Render(turns []types.Turn, names SpeakerNames) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s **%s**: %s", Timestamp(t.Start), names.Name(t.Speaker), t.Text))
	}
	return strings.Join(lines, "\n\n")
}

// Timestamp formats seconds as [MM:SS]. Minutes are not wrapped into hours.
func Timestamp(sec float64) string {
	minutes := math.Floor(sec / 60)
	seconds := math.Floor(sec - minutes*60)
	return fmt.Sprintf("[%02d:%02d]", int(minutes), int(seconds))
}
