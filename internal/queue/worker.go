package queue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/conversation-transcription/internal/conversation"
	"github.com/codebuildervaibhav/conversation-transcription/internal/events"
	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/storage"
	"github.com/codebuildervaibhav/conversation-transcription/internal/transcription"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

var (
	// ErrQueueFull is returned when the job buffer is exhausted.
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolStopped is returned for jobs enqueued after Stop.
	ErrPoolStopped = errors.New("worker pool stopped")
	// ErrAudioTooLong is returned when audio exceeds Options.MaxDuration.
	ErrAudioTooLong = errors.New("audio exceeds maximum duration")
)

// TranscriptSaver persists a finished transcript and returns its location.
type TranscriptSaver interface {
	SaveTranscript(requestName string, result *types.TranscriptionResult) (string, error)
}

// Uploader mirrors a finished transcript to remote storage.
type Uploader interface {
	Upload(ctx context.Context, requestName string, result *types.TranscriptionResult) (string, error)
}

// MetadataStore indexes finished transcripts.
type MetadataStore interface {
	SaveTranscript(ctx context.Context, rec storage.Record) error
}

// Normalizer converts audio into the format handed to the provider.
type Normalizer func(ctx context.Context, inputPath, tempDir string) (string, error)

// Prober reports the length of a local audio file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

// Options tunes the pool.
type Options struct {
	Workers      int
	QueueSize    int
	TempDir      string
	Normalize    Normalizer // nil leaves audio untouched
	Probe        Prober     // nil skips the duration limit
	MaxDuration  time.Duration
	Conversation conversation.Options
	DriveRetries int
	DriveBackoff time.Duration
	HTTPClient   *http.Client
}

// WorkerPool manages a pool of workers processing transcription jobs
type WorkerPool struct {
	jobQueue     chan *Job
	opts         Options
	transcriber  transcription.Transcriber
	localStorage TranscriptSaver
	driveClient  Uploader
	db           MetadataStore
	notifier     events.Notifier
	log          *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// NewWorkerPool creates a new worker pool. driveClient and db may be nil.
func NewWorkerPool(
	transcriber transcription.Transcriber,
	localStorage TranscriptSaver,
	driveClient Uploader,
	db MetadataStore,
	notifier events.Notifier,
	opts Options,
	log *logger.Logger,
) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.DriveRetries <= 0 {
		opts.DriveRetries = 3
	}
	if opts.DriveBackoff <= 0 {
		opts.DriveBackoff = time.Second
	}
	if notifier == nil {
		notifier = events.Noop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorkerPool{
		jobQueue:     make(chan *Job, opts.QueueSize),
		opts:         opts,
		transcriber:  transcriber,
		localStorage: localStorage,
		driveClient:  driveClient,
		db:           db,
		notifier:     notifier,
		log:          log.With("service", "WorkerPool"),
		jobs:         make(map[string]*Job),
	}
}

// Start launches the workers. Jobs run under ctx.
func (wp *WorkerPool) Start(ctx context.Context) {
	ctx, wp.cancel = context.WithCancel(ctx)
	wp.log.Info("Starting worker pool", "workers", wp.opts.Workers, "provider", wp.transcriber.Name())
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop stops accepting jobs and waits for queued jobs to drain.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()

	wp.wg.Wait()
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.log.Info("Worker pool stopped")
}

// EnqueueJob registers a job and adds it to the queue without blocking
func (wp *WorkerPool) EnqueueJob(job *Job) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.setStatus(types.StatusQueued, nil, nil)
	queued := wp.event(job)

	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return ErrPoolStopped
	}
	select {
	case wp.jobQueue <- job:
		wp.jobs[job.ID] = job
	default:
		wp.mu.Unlock()
		return ErrQueueFull
	}
	wp.mu.Unlock()

	wp.log.Info("Job enqueued", "job_id", job.ID, "source", job.SourceType, "name", job.RequestName)
	wp.publish(queued)
	return nil
}

// Job returns a registered job by ID.
func (wp *WorkerPool) Job(id string) (*Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	return job, ok
}

// PruneJobs forgets finished jobs last updated more than maxAge ago.
func (wp *WorkerPool) PruneJobs(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	wp.mu.Lock()
	defer wp.mu.Unlock()

	pruned := 0
	for id, job := range wp.jobs {
		if job.finishedBefore(cutoff) {
			delete(wp.jobs, id)
			pruned++
		}
	}
	return pruned
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.log.With("worker", id)
	log.Debug("Worker started")

	for job := range wp.jobQueue {
		// Panic recovery
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("Panic processing job", "job_id", job.ID, "panic", r, "stack", string(debug.Stack()))
					wp.fail(job, fmt.Errorf("worker panic: %v", r))
					wp.cleanupTempFile(job.FilePath)
				}
			}()

			wp.processJob(ctx, log, job)
		}()
	}
}

// processJob handles the complete transcription pipeline
func (wp *WorkerPool) processJob(ctx context.Context, log *logger.Logger, job *Job) {
	log = log.With("job_id", job.ID)
	log.Info("Processing job")
	job.setStatus(types.StatusProcessing, nil, nil)
	wp.notify(job)

	result, err := wp.transcribe(ctx, log, job)
	if err != nil {
		log.Error("Job failed", "error", err)
		wp.fail(job, err)
		return
	}

	// Save locally
	localPath, err := wp.localStorage.SaveTranscript(job.RequestName, result)
	if err != nil {
		log.Error("Local save failed", "error", err)
		wp.fail(job, fmt.Errorf("local save failed: %w", err))
		return
	}
	result.LocalPath = localPath

	// Upload to Google Drive (with retry)
	if wp.driveClient != nil {
		if url, err := wp.uploadWithRetry(ctx, log, job, result); err != nil {
			log.Warn("Google Drive upload failed, continuing with local save only", "error", err)
		} else {
			result.GDriveURL = url
		}
	}

	// Save metadata to database
	if wp.db != nil {
		if err := wp.db.SaveTranscript(ctx, storage.NewRecord(job.RequestName, job.SourceType, result)); err != nil {
			log.Error("Database save failed", "error", err)
		}
	}

	job.setStatus(types.StatusCompleted, nil, result)
	wp.notify(job)
	log.Info("Job completed",
		"local", localPath,
		"gdrive", result.GDriveURL,
		"turns", len(result.Turns),
		"speakers", result.SpeakerCount)
}

// transcribe resolves the job's audio, runs the provider and assembles the
// conversation. Temporary audio is removed before returning.
func (wp *WorkerPool) transcribe(ctx context.Context, log *logger.Logger, job *Job) (*types.TranscriptionResult, error) {
	defer wp.cleanupTempFile(job.FilePath)

	src := transcription.Source{
		Path:     job.FilePath,
		URL:      job.URL,
		Filename: job.Filename,
		MimeType: job.MimeType,
		Language: job.Language,
	}

	switch {
	case job.Fetch != nil:
		fetched, err := job.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch audio: %w", err)
		}
		defer wp.cleanupTempFile(fetched)
		src.Path, src.URL = fetched, ""
	case job.URL != "" && !transcription.SupportsURL(wp.transcriber, job.URL):
		dst := filepath.Join(wp.opts.TempDir, job.ID+urlExt(job.URL))
		log.Debug("Downloading remote audio", "url", job.URL)
		if err := DownloadFile(ctx, wp.opts.HTTPClient, job.URL, dst); err != nil {
			return nil, err
		}
		defer wp.cleanupTempFile(dst)
		src.Path, src.URL = dst, ""
	}

	if err := wp.checkDuration(ctx, log, src.Path); err != nil {
		return nil, err
	}

	if src.Path != "" && wp.opts.Normalize != nil {
		normalized, err := wp.opts.Normalize(ctx, src.Path, wp.opts.TempDir)
		if err != nil {
			return nil, fmt.Errorf("audio normalization failed: %w", err)
		}
		defer wp.cleanupTempFile(normalized)
		name := src.Name()
		src.Path = normalized
		src.Filename = strings.TrimSuffix(name, filepath.Ext(name)) + ".wav"
		src.MimeType = "audio/wav"
	}

	result, err := wp.transcriber.Transcribe(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	result.JobID = job.ID
	result.ProcessedAt = time.Now()
	result.SourceName = job.Filename
	if result.SourceName == "" {
		result.SourceName = job.RequestName
	}
	conversation.Annotate(result, wp.opts.Conversation)
	return result, nil
}

// checkDuration enforces MaxDuration on local audio. Probe failures are
// logged and ignored.
func (wp *WorkerPool) checkDuration(ctx context.Context, log *logger.Logger, audioPath string) error {
	if audioPath == "" || wp.opts.Probe == nil || wp.opts.MaxDuration <= 0 {
		return nil
	}
	sec, err := wp.opts.Probe(ctx, audioPath)
	if err != nil {
		log.Warn("Could not determine audio duration", "error", err)
		return nil
	}
	if limit := wp.opts.MaxDuration.Seconds(); sec > limit {
		return fmt.Errorf("%.0fs > %.0fs: %w", sec, limit, ErrAudioTooLong)
	}
	return nil
}

func (wp *WorkerPool) uploadWithRetry(ctx context.Context, log *logger.Logger, job *Job, result *types.TranscriptionResult) (string, error) {
	var err error
	for attempt := 1; attempt <= wp.opts.DriveRetries; attempt++ {
		var url string
		url, err = wp.driveClient.Upload(ctx, job.RequestName, result)
		if err == nil {
			return url, nil
		}
		log.Warn("Google Drive upload attempt failed", "attempt", attempt, "max", wp.opts.DriveRetries, "error", err)
		if attempt == wp.opts.DriveRetries {
			break
		}
		// Quadratic backoff
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * wp.opts.DriveBackoff):
		}
	}
	return "", err
}

func (wp *WorkerPool) fail(job *Job, err error) {
	job.setStatus(types.StatusFailed, err, nil)
	wp.notify(job)
}

func (wp *WorkerPool) notify(job *Job) {
	wp.publish(wp.event(job))
}

func (wp *WorkerPool) event(job *Job) events.JobEvent {
	ev := events.JobEvent{
		JobID:       job.ID,
		Status:      job.Status(),
		Source:      job.SourceType,
		RequestName: job.RequestName,
		Provider:    wp.transcriber.Name(),
		At:          time.Now().UTC(),
	}
	if err := job.Err(); err != nil {
		ev.Error = err.Error()
	}
	if res := job.Result(); res != nil {
		ev.LocalPath = res.LocalPath
		ev.GDriveURL = res.GDriveURL
	}
	return ev
}

func (wp *WorkerPool) publish(ev events.JobEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wp.notifier.Publish(ctx, ev); err != nil {
		wp.log.Warn("Failed to publish job event", "job_id", ev.JobID, "error", err)
	}
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		wp.log.Warn("Failed to cleanup temp file", "path", filePath, "error", err)
	}
}

// urlExt keeps a known audio extension from a remote file name.
func urlExt(rawURL string) string {
	p := strings.SplitN(rawURL, "?", 2)[0]
	ext := strings.ToLower(path.Ext(p))
	if transcription.ValidateAudioFormat("x" + ext) {
		return ext
	}
	return ".audio"
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return uuid.New().String()
}
