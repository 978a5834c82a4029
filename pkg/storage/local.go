package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalStorage implements Storage on the local filesystem. Each statement
// gets its own directory holding the upload and a metadata sidecar.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes the upload under <base>/<statementID>/ and records metadata.
func (s *LocalStorage) Save(ctx context.Context, statementID uuid.UUID, filename, contentType string, r io.Reader) (*FileInfo, error) {
	dir := filepath.Join(s.basePath, statementID.String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create statement directory: %w", err)
	}

	storedName := sanitizeFilename(filename)
	if storedName == "" {
		storedName = "statement.pdf"
	}
	filePath := filepath.Join(dir, storedName)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	info := &FileInfo{
		StatementID: statementID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        filePath,
		CreatedAt:   time.Now(),
	}

	if err := s.saveMetadata(statementID, info); err != nil {
		os.Remove(filePath)
		return nil, err
	}
	return info, nil
}

// Open returns a reader over the stored upload.
func (s *LocalStorage) Open(ctx context.Context, statementID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.readMetadata(statementID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return f, info, nil
}

// Remove deletes the statement's directory.
func (s *LocalStorage) Remove(ctx context.Context, statementID uuid.UUID) error {
	dir := filepath.Join(s.basePath, statementID.String())
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove statement directory: %w", err)
	}
	return nil
}

func (s *LocalStorage) metaPath(statementID uuid.UUID) string {
	return filepath.Join(s.basePath, statementID.String(), ".meta.json")
}

func (s *LocalStorage) saveMetadata(statementID uuid.UUID, info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(statementID), data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *LocalStorage) readMetadata(statementID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(statementID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("upload not found: %s", statementID)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &info, nil
}

// sanitizeFilename strips path separators and shell-hostile characters.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
