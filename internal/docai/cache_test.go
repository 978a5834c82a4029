package docai

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) *ResultCache {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	cache, err := NewResultCache(t.TempDir(), logger)
	require.NoError(t, err)
	return cache
}

func TestResultCache_RoundTrip(t *testing.T) {
	cache := testCache(t)
	hash := ContentHash([]byte("statement bytes"))

	_, ok := cache.Get(hash, "proc-1")
	assert.False(t, ok, "empty cache should miss")

	doc := &documentaipb.Document{Text: "page one\npage two"}
	require.NoError(t, cache.Put(hash, "proc-1", doc))

	got, ok := cache.Get(hash, "proc-1")
	require.True(t, ok)
	assert.Equal(t, doc.GetText(), got.GetText())

	// Entries are keyed by processor as well as content.
	_, ok = cache.Get(hash, "proc-2")
	assert.False(t, ok)
}

func TestResultCache_CorruptEntryIsMiss(t *testing.T) {
	cache := testCache(t)
	hash := ContentHash([]byte("x"))

	path := filepath.Join(cache.dir, hash+"-proc.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, ok := cache.Get(hash, "proc")
	assert.False(t, ok)
}

func TestResultCache_Prune(t *testing.T) {
	cache := testCache(t)

	require.NoError(t, cache.Put(ContentHash([]byte("old")), "proc", &documentaipb.Document{}))
	require.NoError(t, cache.Put(ContentHash([]byte("new")), "proc", &documentaipb.Document{}))

	oldPath := cache.path(ContentHash([]byte("old")), "proc")
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, stale, stale))

	removed, err := cache.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := cache.Get(ContentHash([]byte("old")), "proc")
	assert.False(t, ok)
	_, ok = cache.Get(ContentHash([]byte("new")), "proc")
	assert.True(t, ok)
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("same"))
	assert.Equal(t, a, ContentHash([]byte("same")))
	assert.NotEqual(t, a, ContentHash([]byte("different")))
	assert.Len(t, a, 64)
}
