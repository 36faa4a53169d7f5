package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// WhisperTranscriber wraps Python's OpenAI Whisper for transcription
type WhisperTranscriber struct {
	modelName string
	python    string
	threads   int
	device    string
	language  string
	tempDir   string
	log       *logger.Logger
	mu        sync.Mutex // one local model run at a time
}

// WhisperModelName extracts a model name from a model path
// (e.g., "ggml-small.bin" -> "small"), defaulting to "small".
func WhisperModelName(modelPath string) string {
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		if strings.Contains(modelPath, name) {
			return name
		}
	}
	return "small"
}

// NewWhisperTranscriber creates a new transcriber using Python Whisper
func NewWhisperTranscriber(model, python string, threads int, device, language, tempDir string, log *logger.Logger) *WhisperTranscriber {
	if python == "" {
		python = "python"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "WhisperTranscriber")
	log.Info("Initializing Python Whisper", "model", model, "python", python)

	return &WhisperTranscriber{
		modelName: model,
		python:    python,
		threads:   threads,
		device:    device,
		language:  language,
		tempDir:   tempDir,
		log:       log,
	}
}

func (wt *WhisperTranscriber) Name() string { return "whisper" }

// Transcribe processes an audio file and returns the recognized words
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, src Source) (*types.TranscriptionResult, error) {
	if src.Path == "" {
		if src.URL != "" {
			return nil, fmt.Errorf("whisper: %w", ErrURLUnsupported)
		}
		return nil, ErrEmptyAudio
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()

	outDir, err := os.MkdirTemp(wt.tempDir, "whisper_output_")
	if err != nil {
		return nil, fmt.Errorf("whisper: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	absAudioPath, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, fmt.Errorf("whisper: absolute path: %w", err)
	}

	cmd := exec.CommandContext(ctx, wt.python, wt.args(absAudioPath, outDir, src.Language)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w\nOutput: %s", err, string(output))
	}
	wt.log.Debug("Whisper finished", "output", string(output))

	baseName := strings.TrimSuffix(filepath.Base(absAudioPath), filepath.Ext(absAudioPath))
	jsonData, err := os.ReadFile(filepath.Join(outDir, baseName+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisper: read output: %w", err)
	}

	result, err := parseWhisperOutput(jsonData)
	if err != nil {
		return nil, err
	}
	wt.log.Info("Transcription completed", "words", len(result.Words), "duration", result.AudioDuration)
	return result, nil
}

func (wt *WhisperTranscriber) args(audioPath, outDir, language string) []string {
	args := []string{"-m", "whisper",
		audioPath,
		"--model", wt.modelName,
		"--output_dir", outDir,
		"--output_format", "json",
		"--word_timestamps", "True",
		"--fp16", "False", // CPU compatibility
	}
	if language == "" {
		language = wt.language
	}
	if language != "" {
		args = append(args, "--language", language)
	}
	if wt.threads > 0 {
		args = append(args, "--threads", strconv.Itoa(wt.threads))
	}
	if wt.device != "" && wt.device != "auto" {
		args = append(args, "--device", wt.device)
	}
	return args
}

// WhisperOutput matches Python Whisper's JSON output format
type WhisperOutput struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []WhisperSegment `json:"segments"`
}

// WhisperSegment represents a timestamped segment from Whisper
type WhisperSegment struct {
	ID    int           `json:"id"`
	Start float64       `json:"start"`
	End   float64       `json:"end"`
	Text  string        `json:"text"`
	Words []WhisperWord `json:"words"`
}

// WhisperWord is present when --word_timestamps is enabled.
type WhisperWord struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

func parseWhisperOutput(data []byte) (*types.TranscriptionResult, error) {
	var out WhisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("whisper: parse JSON: %w", err)
	}

	var raw []rawWord
	var duration float64
	for _, seg := range out.Segments {
		for _, w := range seg.Words {
			raw = append(raw, rawWord{text: w.Word, start: w.Start, end: w.End, confidence: w.Probability})
		}
		duration = seg.End
	}

	return &types.TranscriptionResult{
		Provider:      "whisper",
		Text:          strings.TrimSpace(out.Text),
		Language:      out.Language,
		AudioDuration: duration,
		Words:         toWords(raw),
	}, nil
}
