package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
)

// JobQueue is the part of the worker pool the handlers use.
type JobQueue interface {
	EnqueueJob(job *queue.Job) error
	Job(id string) (*queue.Job, bool)
}

func errorJSON(c *fiber.Ctx, status int, msg, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}

// enqueue submits job and writes the accepted response.
func enqueue(c *fiber.Ctx, q JobQueue, job *queue.Job, message string) error {
	if err := q.EnqueueJob(job); err != nil {
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrPoolStopped) {
			return errorJSON(c, fiber.StatusServiceUnavailable, err.Error(), "ERR_QUEUE_UNAVAILABLE")
		}
		return errorJSON(c, fiber.StatusInternalServerError, err.Error(), "ERR_ENQUEUE_FAILED")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  job.Status(),
		"message": message,
	})
}
