package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/codebuildervaibhav/conversation-transcription/internal/types"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no transcript matches a job ID.
var ErrNotFound = errors.New("transcript not found")

// Record is one row of the transcripts table.
type Record struct {
	JobID        string    `json:"job_id"`
	RequestName  string    `json:"request_name"`
	SourceType   string    `json:"source_type"`
	Provider     string    `json:"provider"`
	Language     string    `json:"language"`
	GDriveURL    string    `json:"gdrive_url,omitempty"`
	LocalPath    string    `json:"local_path"`
	CreatedAt    time.Time `json:"created_at"`
	Duration     float64   `json:"duration"`
	WordCount    int       `json:"word_count"`
	SpeakerCount int       `json:"speaker_count"`
	TurnCount    int       `json:"turn_count"`
}

// NewRecord builds the row stored for a finished job.
func NewRecord(requestName, sourceType string, result *types.TranscriptionResult) Record {
	return Record{
		JobID:        result.JobID,
		RequestName:  requestName,
		SourceType:   sourceType,
		Provider:     result.Provider,
		Language:     result.Language,
		GDriveURL:    result.GDriveURL,
		LocalPath:    result.LocalPath,
		CreatedAt:    result.ProcessedAt,
		Duration:     result.Duration,
		WordCount:    result.WordCount,
		SpeakerCount: result.SpeakerCount,
		TurnCount:    len(result.Turns),
	}
}

// MetadataDB handles SQLite database operations
type MetadataDB struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS transcripts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL UNIQUE,
	request_name TEXT NOT NULL,
	source_type TEXT NOT NULL,
	provider TEXT NOT NULL DEFAULT '',
	language TEXT,
	gdrive_url TEXT,
	local_path TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	duration REAL,
	word_count INTEGER,
	speaker_count INTEGER,
	turn_count INTEGER
);

CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
CREATE INDEX IF NOT EXISTS idx_request_name ON transcripts(request_name);
`

const selectColumns = `job_id, request_name, source_type, provider, COALESCE(language, ''),
	COALESCE(gdrive_url, ''), local_path, created_at, COALESCE(duration, 0),
	COALESCE(word_count, 0), COALESCE(speaker_count, 0), COALESCE(turn_count, 0)`

// NewMetadataDB opens (or creates) the SQLite database at dbPath
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveTranscript inserts the row for a finished job
func (mdb *MetadataDB) SaveTranscript(ctx context.Context, rec Record) error {
	query := `
	INSERT INTO transcripts (job_id, request_name, source_type, provider, language, gdrive_url,
		local_path, created_at, duration, word_count, speaker_count, turn_count)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err := mdb.db.ExecContext(ctx, query, rec.JobID, rec.RequestName, rec.SourceType, rec.Provider,
		rec.Language, rec.GDriveURL, rec.LocalPath, rec.CreatedAt.UTC(), rec.Duration,
		rec.WordCount, rec.SpeakerCount, rec.TurnCount)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}

	return nil
}

// GetTranscript retrieves transcript metadata by job ID
func (mdb *MetadataDB) GetTranscript(ctx context.Context, jobID string) (*Record, error) {
	row := mdb.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM transcripts WHERE job_id = ?`, jobID)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return rec, nil
}

// ListTranscripts returns the newest transcripts first
func (mdb *MetadataDB) ListTranscripts(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := mdb.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	transcripts := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		transcripts = append(transcripts, *rec)
	}
	return transcripts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	err := s.Scan(&rec.JobID, &rec.RequestName, &rec.SourceType, &rec.Provider, &rec.Language,
		&rec.GDriveURL, &rec.LocalPath, &rec.CreatedAt, &rec.Duration,
		&rec.WordCount, &rec.SpeakerCount, &rec.TurnCount)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
