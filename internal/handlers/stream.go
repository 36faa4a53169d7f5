package handlers

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/conversation-transcription/internal/logger"
	"github.com/codebuildervaibhav/conversation-transcription/internal/queue"
	"github.com/codebuildervaibhav/conversation-transcription/internal/types"
)

// StreamHandler handles WebSocket audio streaming
type StreamHandler struct {
	jobs     JobQueue
	tempDir  string
	maxBytes int
	log      *logger.Logger
}

// NewStreamHandler creates a new stream handler. maxBytes caps the buffered
// audio; zero means unlimited.
func NewStreamHandler(jobs JobQueue, tempDir string, maxBytes int, log *logger.Logger) *StreamHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &StreamHandler{
		jobs:     jobs,
		tempDir:  tempDir,
		maxBytes: maxBytes,
		log:      log.With("handler", "stream"),
	}
}

type streamReply struct {
	JobID  string `json:"job_id,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// streamControl is an optional JSON text frame: {"name": "...", "language": "es"}.
type streamControl struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// streamMeta collects the name and language sent in text frames.
type streamMeta struct {
	name     string
	language string
}

// apply handles one text frame and reports whether it was "END". JSON frames
// only overwrite the fields they set; any other short text is the name.
func (m *streamMeta) apply(frame string) (end bool) {
	msg := strings.TrimSpace(frame)
	if msg == "END" {
		return true
	}
	var ctl streamControl
	if strings.HasPrefix(msg, "{") && json.Unmarshal([]byte(msg), &ctl) == nil {
		if ctl.Name != "" {
			m.name = ctl.Name
		}
		if ctl.Language != "" {
			m.language = ctl.Language
		}
		return false
	}
	if len(msg) > 0 && len(msg) < 200 {
		m.name = msg
	}
	return false
}

// Handle buffers binary audio frames until the client sends "END" (or
// disconnects), then queues the recording. Other text frames set the name.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer bytes.Buffer
		meta   streamMeta
		jobID  = queue.NewJobID()
		log    = h.log.With("job_id", jobID)
	)
	log.Info("WebSocket connection established")

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.Debug("WebSocket read finished", "error", err)
			break
		}

		if messageType == websocket.TextMessage {
			if meta.apply(string(message)) {
				log.Info("Received END signal, processing stream")
				break
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if h.maxBytes > 0 && buffer.Len()+len(message) > h.maxBytes {
				_ = c.WriteJSON(streamReply{Error: "Stream too large", Code: "ERR_FILE_TOO_LARGE"})
				return
			}
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		log.Warn("No audio data received in stream")
		_ = c.WriteJSON(streamReply{Error: "No audio data received", Code: "ERR_NO_FILE"})
		return
	}
	requestName := meta.name
	if requestName == "" {
		requestName = "stream_recording"
	}

	tempPath := filepath.Join(h.tempDir, jobID+".webm")
	if err := os.WriteFile(tempPath, buffer.Bytes(), 0644); err != nil {
		log.Error("Failed to save stream buffer", "error", err)
		_ = c.WriteJSON(streamReply{Error: "Failed to save stream", Code: "ERR_SAVE_FAILED"})
		return
	}
	log.Info("Stream saved", "path", tempPath, "bytes", buffer.Len())

	job := queue.NewJob(jobID, requestName, types.SourceStream, tempPath)
	job.Filename = requestName + ".webm"
	job.MimeType = "audio/webm"
	job.Language = meta.language

	if err := h.jobs.EnqueueJob(job); err != nil {
		os.Remove(tempPath)
		_ = c.WriteJSON(streamReply{Error: err.Error(), Code: "ERR_QUEUE_UNAVAILABLE"})
		return
	}
	_ = c.WriteJSON(streamReply{JobID: jobID, Status: job.Status()})
}
