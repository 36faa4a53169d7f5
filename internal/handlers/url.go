package handlers

import (
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// URLHandler queues audio hosted at a public http(s) or gs:// URL
type URLHandler struct {
	jobs JobQueue
}

func NewURLHandler(jobs JobQueue) *URLHandler {
	return &URLHandler{jobs: jobs}
}

// URLRequest represents the request body
type URLRequest struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

func (h *URLHandler) Handle(c *fiber.Ctx) error {
	var req URLRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body", "ERR_INVALID_BODY")
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "URL is required", "ERR_NO_URL")
	}

	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "gs") {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid audio URL", "ERR_INVALID_URL")
	}

	base := path.Base(u.Path)
	if base == "." || base == "/" {
		base = ""
	}
	if req.Name == "" {
		req.Name = strings.TrimSuffix(base, path.Ext(base))
	}
	if req.Name == "" {
		req.Name = "remote_audio"
	}

	job := queue.NewJob(queue.NewJobID(), req.Name, types.SourceURL, "")
	job.URL = req.URL
	job.Filename = base
	job.Language = req.Language

	return enqueue(c, h.jobs, job, "Audio URL accepted, processing started")
}
