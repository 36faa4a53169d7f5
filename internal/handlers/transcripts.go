package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/storage"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// TranscriptIndex lists and looks up stored transcripts.
type TranscriptIndex interface {
	ListTranscripts(ctx context.Context, limit int) ([]storage.Record, error)
	GetTranscript(ctx context.Context, jobID string) (*storage.Record, error)
}

// ReportLoader reads the JSON report saved for a transcript.
type ReportLoader interface {
	LoadReport(mdPath string) (*types.Report, error)
}

// TranscriptsHandler serves stored transcripts
type TranscriptsHandler struct {
	index   TranscriptIndex
	reports ReportLoader
	log     *logger.Logger
}

func NewTranscriptsHandler(index TranscriptIndex, reports ReportLoader, log *logger.Logger) *TranscriptsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TranscriptsHandler{index: index, reports: reports, log: log.With("handler", "transcripts")}
}

// List returns the newest transcripts; ?limit= defaults to 50.
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		return errorJSON(c, fiber.StatusBadRequest, "limit must be between 1 and 500", "ERR_INVALID_LIMIT")
	}
	records, err := h.index.ListTranscripts(c.UserContext(), limit)
	if err != nil {
		h.log.Error("List transcripts failed", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_DB")
	}
	return c.JSON(records)
}

// Get returns the record and the full report.
func (h *TranscriptsHandler) Get(c *fiber.Ctx) error {
	rec, report, ok, err := h.load(c)
	if !ok {
		return err
	}
	return c.JSON(fiber.Map{
		"transcript": rec,
		"report":     report,
	})
}

// Text returns the rendered conversation as Markdown.
func (h *TranscriptsHandler) Text(c *fiber.Ctx) error {
	_, report, ok, err := h.load(c)
	if !ok {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	return c.SendString(report.FormattedConversation)
}

// load looks up the transcript and its report. When ok is false the error
// response has already been written and err is the handler's return value.
func (h *TranscriptsHandler) load(c *fiber.Ctx) (rec *storage.Record, report *types.Report, ok bool, err error) {
	rec, err = h.index.GetTranscript(c.UserContext(), c.Params("id"))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, false, errorJSON(c, fiber.StatusNotFound, "Transcript not found", "ERR_NOT_FOUND")
	}
	if err != nil {
		h.log.Error("Get transcript failed", "error", err)
		return nil, nil, false, errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_DB")
	}
	if rec.LocalPath == "" {
		return nil, nil, false, errorJSON(c, fiber.StatusNotFound, "Transcript file path not found", "ERR_NOT_FOUND")
	}

	report, err = h.reports.LoadReport(rec.LocalPath)
	if err != nil {
		h.log.Error("Load report failed", "path", rec.LocalPath, "error", err)
		return nil, nil, false, errorJSON(c, fiber.StatusInternalServerError, "Failed to read transcript file", "ERR_READ_FAILED")
	}
	return rec, report, true, nil
}
