package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/conversation-transcription/internal/config"
	"github.com/codebuildervaibhav/conversation-transcription/internal/conversation"
	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/transcription"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

type options struct {
	configPath string
	provider   string
	language   string
	pause      float64
	speakers   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{pause: -1}
	cmd := &cobra.Command{
		Use:   "transcribe <file-or-url>",
		Short: "Transcribe a conversation and print the JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, args[0])
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	f.StringVar(&opts.provider, "provider", "", "transcription provider (deepgram, openai, whisper, google)")
	f.StringVar(&opts.language, "language", "", "language code, empty lets the provider decide")
	f.Float64Var(&opts.pause, "pause", -1, "pause threshold in seconds that starts a new turn")
	f.StringArrayVar(&opts.speakers, "speaker", nil, "speaker label as index=Name, repeatable")
	return cmd
}

func run(ctx context.Context, opts *options, input string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	// Logs go to stderr so stdout stays pure JSON
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	transcriber, err := transcription.NewFromConfig(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closer, ok := transcriber.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	tempDir, err := os.MkdirTemp("", "transcribe-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	src, err := resolveSource(ctx, transcriber, input, tempDir)
	if err != nil {
		return err
	}
	if src.Path != "" && cfg.Transcription.NormalizeAudio {
		normalized, err := transcription.NormalizeAudio(ctx, src.Path, tempDir)
		if err != nil {
			return fmt.Errorf("audio normalization failed: %w", err)
		}
		name := src.Name()
		src.Path = normalized
		src.Filename = strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"
		src.MimeType = "audio/wav"
	}

	log.Info("Transcribing", "source", src.Name(), "provider", transcriber.Name())
	result, err := transcriber.Transcribe(ctx, src)
	if err != nil {
		log.Error("Transcription failed", "error", err)
		return err
	}
	result.SourceName = src.Name()
	result.ProcessedAt = time.Now()
	conversation.Annotate(result, conversation.Options{
		PauseThreshold: cfg.PauseThreshold(),
		SpeakerNames:   speakerNames(cfg.Conversation.SpeakerNames),
	})

	out, err := json.MarshalIndent(types.NewReport(result), "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// resolveSource passes remote URLs through when the provider can fetch them
// and downloads them otherwise.
func resolveSource(ctx context.Context, t transcription.Transcriber, input, tempDir string) (transcription.Source, error) {
	if !isRemote(input) {
		if _, err := os.Stat(input); err != nil {
			return transcription.Source{}, fmt.Errorf("audio file: %w", err)
		}
		return transcription.Source{Path: input, Filename: filepath.Base(input)}, nil
	}

	src := transcription.Source{URL: input}
	if transcription.SupportsURL(t, input) {
		return src, nil
	}
	if strings.HasPrefix(input, "gs://") {
		return src, fmt.Errorf("%s: %w", t.Name(), transcription.ErrURLUnsupported)
	}
	name := src.Name()
	dst := filepath.Join(tempDir, "download"+filepath.Ext(name))
	if err := queue.DownloadFile(ctx, nil, input, dst); err != nil {
		return src, err
	}
	return transcription.Source{Path: dst, Filename: name}, nil
}

func isRemote(input string) bool {
	for _, scheme := range []string{"http://", "https://", "gs://"} {
		if strings.HasPrefix(input, scheme) {
			return true
		}
	}
	return false
}

func applyFlags(cfg *config.Config, opts *options) error {
	if opts.provider != "" {
		cfg.Transcription.Provider = opts.provider
	}
	if opts.language != "" {
		cfg.Transcription.Language = opts.language
	}
	if opts.pause >= 0 {
		p := opts.pause
		cfg.Conversation.PauseThreshold = &p
	}
	names, err := parseSpeakers(opts.speakers)
	if err != nil {
		return err
	}
	if len(names) > 0 && cfg.Conversation.SpeakerNames == nil {
		cfg.Conversation.SpeakerNames = make(map[int]string, len(names))
	}
	for k, v := range names {
		cfg.Conversation.SpeakerNames[k] = v
	}
	return nil
}

// parseSpeakers reads "index=Name" pairs.
func parseSpeakers(pairs []string) (map[int]string, error) {
	names := make(map[int]string, len(pairs))
	for _, pair := range pairs {
		idx, name, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --speaker %q, want index=Name", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid speaker index in %q", pair)
		}
		names[n] = name
	}
	return names, nil
}

func speakerNames(m map[int]string) conversation.SpeakerNames {
	if len(m) == 0 {
		return nil
	}
	names := make(conversation.SpeakerNames, len(m))
	for k, v := range m {
		names[types.Speaker(k)] = v
	}
	return names
}
