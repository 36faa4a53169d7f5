package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

var (
	gdriveFilePattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveIDParam     = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	gdriveBareID      = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler handles Google Drive link processing
type GDriveHandler struct {
	jobs        JobQueue
	tempDir     string
	httpClient  *http.Client
	downloadURL string
	log         *logger.Logger
}

// NewGDriveHandler creates a new Google Drive handler
func NewGDriveHandler(jobs JobQueue, tempDir string, httpClient *http.Client, log *logger.Logger) *GDriveHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &GDriveHandler{
		jobs:        jobs,
		tempDir:     tempDir,
		httpClient:  httpClient,
		downloadURL: "https://drive.google.com/uc?export=download&id=%s",
		log:         log.With("handler", "gdrive"),
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Handle queues a shared Drive file; the worker downloads it.
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}
	if req.Name == "" {
		req.Name = "gdrive_file"
	}

	jobID := queue.NewJobID()
	tempPath := filepath.Join(h.tempDir, jobID+".audio")
	downloadURL := fmt.Sprintf(h.downloadURL, fileID)

	job := queue.NewJob(jobID, req.Name, types.SourceGDrive, "")
	job.Language = req.Language
	job.Fetch = func(ctx context.Context) (string, error) {
		h.log.Info("Downloading from Google Drive", "file_id", fileID, "job_id", jobID)
		if err := queue.DownloadFile(ctx, h.httpClient, downloadURL, tempPath); err != nil {
			return "", err
		}
		return tempPath, nil
	}

	return enqueue(c, h.jobs, job, "Google Drive file accepted, download and processing started")
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if matches := gdriveFilePattern.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// https://drive.google.com/open?id={ID}
	if matches := gdriveIDParam.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	// Direct ID (25-40 characters)
	if matches := gdriveBareID.FindStringSubmatch(url); len(matches) > 1 {
		return matches[1]
	}
	return ""
}
