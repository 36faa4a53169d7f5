package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// JobsHandler reports the status of queued and recent jobs
type JobsHandler struct {
	jobs JobQueue
}

func NewJobsHandler(jobs JobQueue) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

func (h *JobsHandler) Get(c *fiber.Ctx) error {
	job, ok := h.jobs.Job(c.Params("id"))
	if !ok {
		return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_NOT_FOUND")
	}
	return c.JSON(job.Snapshot())
}
