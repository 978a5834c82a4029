// Package storage keeps uploaded statement files on disk so processing can
// re-read them after the request body is gone.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileInfo describes one stored upload.
type FileInfo struct {
	StatementID uuid.UUID `json:"statement_id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
}

// Storage persists uploaded statement documents keyed by statement ID.
type Storage interface {
	// Save writes the upload and returns its metadata, including the local
	// path the pipeline reads from.
	Save(ctx context.Context, statementID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Open returns a reader over a stored upload.
	Open(ctx context.Context, statementID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Remove deletes a stored upload and its metadata.
	Remove(ctx context.Context, statementID uuid.UUID) error
}
