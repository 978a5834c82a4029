package docai

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"
)

// ResultCache persists raw OCR results on disk keyed by
// {contentHash}-{processorID}.json. Entries never expire on their own;
// Prune and manual deletion are the only invalidation. A processor upgrade
// does not auto-invalidate entries written under the same ID.
type ResultCache struct {
	dir    string
	logger *slog.Logger
}

// NewResultCache creates the cache directory if needed.
func NewResultCache(dir string, logger *slog.Logger) (*ResultCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docai: create cache directory: %w", err)
	}
	return &ResultCache{dir: dir, logger: logger}, nil
}

// ContentHash returns the hex SHA-256 of the source document bytes.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func (c *ResultCache) path(hash, processorID string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s-%s.json", hash, processorID))
}

// Get loads a previously cached result. The second return is false on miss or
// on an unreadable entry; a corrupt entry is treated as a miss, not an error.
func (c *ResultCache) Get(hash, processorID string) (*documentaipb.Document, bool) {
	data, err := os.ReadFile(c.path(hash, processorID))
	if err != nil {
		return nil, false
	}

	doc := &documentaipb.Document{}
	if err := protojson.Unmarshal(data, doc); err != nil {
		c.logger.Warn("discarding corrupt OCR cache entry", "hash", hash, "error", err)
		return nil, false
	}
	return doc, true
}

// Put serializes the raw result verbatim. Write failures are returned so the
// caller can log them, but a failed Put never invalidates the in-memory copy.
func (c *ResultCache) Put(hash, processorID string, doc *documentaipb.Document) error {
	data, err := protojson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docai: marshal cached result: %w", err)
	}
	if err := os.WriteFile(c.path(hash, processorID), data, 0o644); err != nil {
		return fmt.Errorf("docai: write cache entry: %w", err)
	}
	return nil
}

// Prune removes entries older than maxAge and reports how many were deleted.
func (c *ResultCache) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("docai: read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
