package handlers

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// YouTubeHandler handles YouTube video audio capture
type YouTubeHandler struct {
	jobs    JobQueue
	tempDir string
	log     *logger.Logger

	pageTitle    func(ctx context.Context, url string) (string, error)
	extractAudio func(ctx context.Context, url, outputPath string) error
}

// NewYouTubeHandler creates a new YouTube handler
func NewYouTubeHandler(jobs JobQueue, tempDir string, log *logger.Logger) *YouTubeHandler {
	if log == nil {
		log = logger.Nop()
	}
	h := &YouTubeHandler{
		jobs:    jobs,
		tempDir: tempDir,
		log:     log.With("handler", "youtube"),
	}
	h.pageTitle = fetchPageTitle
	h.extractAudio = h.captureWithYtDlp
	return h
}

// YouTubeRequest represents the request body
type YouTubeRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Handle processes YouTube video requests
func (h *YouTubeHandler) Handle(c *fiber.Ctx) error {
	var req YouTubeRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	if req.Name == "" {
		ctx, cancel := context.WithTimeout(c.UserContext(), 20*time.Second)
		title, err := h.pageTitle(ctx, req.URL)
		cancel()
		if err != nil {
			h.log.Warn("Could not read video title", "url", req.URL, "error", err)
		}
		req.Name = cleanVideoTitle(title)
	}
	if req.Name == "" {
		req.Name = "youtube_video"
	}

	jobID := queue.NewJobID()
	tempPath := filepath.Join(h.tempDir, jobID+".opus")

	job := queue.NewJob(jobID, req.Name, types.SourceYouTube, "")
	job.Filename = req.Name + ".opus"
	job.Language = req.Language
	job.Fetch = func(ctx context.Context) (string, error) {
		// Long videos can take a while to extract
		ctx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		if err := h.extractAudio(ctx, req.URL, tempPath); err != nil {
			return "", err
		}
		return tempPath, nil
	}

	return enqueue(c, h.jobs, job, "YouTube audio capture started (this may take a few minutes for long videos)")
}

// fetchPageTitle loads the video page in headless Chrome and reads document.title
func fetchPageTitle(ctx context.Context, url string) (string, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var title string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.title`, &title, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

func cleanVideoTitle(title string) string {
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), "- YouTube"))
	if title == "YouTube" {
		return ""
	}
	return title
}

// captureWithYtDlp uses yt-dlp to download YouTube audio
func (h *YouTubeHandler) captureWithYtDlp(ctx context.Context, url, outputPath string) error {
	h.log.Info("Using yt-dlp to download", "url", url)

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-x",                     // Extract audio
		"--audio-format", "opus", // Opus format
		"-o", outputPath,
		url,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp failed: %w\nOutput: %s", err, string(output))
	}

	h.log.Info("YouTube audio downloaded", "path", outputPath)
	return nil
}
