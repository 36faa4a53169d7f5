package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/cleanup"
	"github.com/codebuildervaibhav/conversation-transcription/internal/config"
	"github.com/codebuildervaibhav/conversation-transcription/internal/conversation"
	"github.com/codebuildervaibhav/conversation-transcription/internal/events"
	"github.com/codebuildervaibhav/conversation-transcription/internal/handlers"
	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/storage"
	"github.com/codebuildervaibhav/conversation-transcription/internal/transcription"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

const version = "2.0.0"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Every log line is also kept in memory for GET /logs
	logBuffer := logger.NewBuffer(1000)
	log, err := logger.New(cfg.Log.Mode, logBuffer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		log.Fatal("Failed to create temp directory", "error", err)
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		log.Fatal("Failed to create output directory", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Initializing components", "provider", cfg.Transcription.Provider)

	transcriber, err := transcription.NewFromConfig(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize transcriber", "error", err)
	}
	if closer, ok := transcriber.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	localStorage := storage.NewLocalStorage(cfg.Storage.OutputDir)

	// Google Drive client (optional - may fail if credentials not set up)
	var uploader queue.Uploader
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); cfg.GoogleDrive.CredentialsFile != "" && err == nil {
		driveClient, err := storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			cfg.GoogleDrive.TokenFile,
			cfg.GoogleDrive.FolderName,
			log,
		)
		if err != nil {
			log.Warn("Google Drive not available, transcripts will only be saved locally", "error", err)
		} else {
			uploader = driveClient
			log.Info("Google Drive integration enabled", "folder", cfg.GoogleDrive.FolderName)
		}
	} else {
		log.Info("Google Drive credentials not found - saving locally only")
	}

	db, err := storage.NewMetadataDB(cfg.Storage.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close()

	var notifier events.Notifier = events.Noop{}
	if cfg.Redis.Addr != "" {
		n, err := events.NewRedisNotifier(cfg.Redis.Addr, cfg.Redis.Channel, log)
		if err != nil {
			log.Warn("Redis job events disabled", "error", err)
		} else {
			notifier = n
			log.Info("Publishing job events to Redis", "channel", cfg.Redis.Channel)
		}
	}
	defer notifier.Close()

	var normalize queue.Normalizer
	if cfg.Transcription.NormalizeAudio {
		normalize = transcription.NormalizeAudio
	}

	workerPool := queue.NewWorkerPool(transcriber, localStorage, uploader, db, notifier, queue.Options{
		Workers:     cfg.Workers.Count,
		TempDir:     cfg.Storage.TempDir,
		Normalize:   normalize,
		Probe:       transcription.ProbeDuration,
		MaxDuration: time.Duration(cfg.Limits.MaxDurationMinutes) * time.Minute,
		Conversation: conversation.Options{
			PauseThreshold: cfg.PauseThreshold(),
			SpeakerNames:   speakerNames(cfg.Conversation.SpeakerNames),
		},
	}, log)
	// Jobs are not tied to the signal context so Stop can drain them
	workerPool.Start(context.Background())

	cleanupScheduler := cleanup.NewScheduler(
		cfg.Storage.TempDir,
		cfg.Cleanup.IntervalMinutes,
		cfg.Cleanup.MaxAgeHours,
		workerPool,
		log,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: io.MultiWriter(os.Stdout, logBuffer)}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	maxBytes := cfg.Limits.MaxFileSizeMB * 1024 * 1024
	uploadHandler := handlers.NewUploadHandler(workerPool, cfg.Storage.TempDir, cfg.Limits.MaxFileSizeMB, log)
	urlHandler := handlers.NewURLHandler(workerPool)
	gdriveHandler := handlers.NewGDriveHandler(workerPool, cfg.Storage.TempDir, nil, log)
	youtubeHandler := handlers.NewYouTubeHandler(workerPool, cfg.Storage.TempDir, log)
	streamHandler := handlers.NewStreamHandler(workerPool, cfg.Storage.TempDir, maxBytes, log)
	jobsHandler := handlers.NewJobsHandler(workerPool)
	transcriptsHandler := handlers.NewTranscriptsHandler(db, localStorage, log)

	app.Get("/health", handlers.Health(transcriber.Name(), version))
	app.Get("/logs", handlers.Logs(logBuffer))

	app.Post("/upload", uploadHandler.Handle)
	app.Post("/url", urlHandler.Handle)
	app.Post("/gdrive", gdriveHandler.Handle)
	app.Post("/youtube", youtubeHandler.Handle)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/stream", websocket.New(streamHandler.Handle))

	app.Get("/jobs/:id", jobsHandler.Get)
	app.Get("/transcripts", transcriptsHandler.List)
	app.Get("/transcripts/:id", transcriptsHandler.Get)
	app.Get("/transcripts/:id/text", transcriptsHandler.Text)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Server starting", "addr", addr, "routes", []string{
		"POST /upload", "POST /url", "POST /gdrive", "POST /youtube", "GET /ws/stream",
		"GET /jobs/:id", "GET /transcripts", "GET /transcripts/:id", "GET /transcripts/:id/text",
		"GET /logs", "GET /health",
	})

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("Shutting down gracefully")
		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Error("Server shutdown failed", "error", err)
		}
	}()

	if err := app.Listen(addr); err != nil {
		log.Error("Server failed", "error", err)
	}

	// Let queued jobs finish before the stores close
	workerPool.Stop()
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
