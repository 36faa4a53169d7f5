package queue

import (
	"context"
	"sync"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// FetchFunc produces the local audio file for a job whose audio has to be
// captured first (Drive downloads, YouTube extraction).
type FetchFunc func(ctx context.Context) (string, error)

// Job represents a transcription job. The exported fields are fixed once the
// job is enqueued; progress is read through Status, Err and Result.
type Job struct {
	ID          string
	RequestName string
	SourceType  string
	Filename    string // original file name, if known
	FilePath    string // local audio, removed after processing
	URL         string // remote audio
	Fetch       FetchFunc
	MimeType    string
	Language    string
	CreatedAt   time.Time

	mu        sync.RWMutex
	status    string
	err       error
	result    *types.TranscriptionResult
	updatedAt time.Time
}

// NewJob creates a new job with default values
func NewJob(id, requestName, sourceType, filePath string) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		RequestName: requestName,
		SourceType:  sourceType,
		FilePath:    filePath,
		CreatedAt:   now,
		status:      types.StatusQueued,
		updatedAt:   now,
	}
}

func (j *Job) Status() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *Job) Err() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.err
}

func (j *Job) Result() *types.TranscriptionResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

func (j *Job) setStatus(status string, err error, result *types.TranscriptionResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = status
	j.err = err
	if result != nil {
		j.result = result
	}
	j.updatedAt = time.Now()
}

// Snapshot is the JSON view of a job.
type Snapshot struct {
	JobID       string        `json:"job_id"`
	RequestName string        `json:"request_name"`
	SourceType  string        `json:"source_type"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Result      *types.Report `json:"result,omitempty"`
}

func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	s := Snapshot{
		JobID:       j.ID,
		RequestName: j.RequestName,
		SourceType:  j.SourceType,
		Status:      j.status,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.updatedAt,
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	if j.result != nil {
		report := types.NewReport(j.result)
		s.Result = &report
	}
	return s
}

func (j *Job) finishedBefore(cutoff time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	done := j.status == types.StatusCompleted || j.status == types.StatusFailed
	return done && j.updatedAt.Before(cutoff)
}
