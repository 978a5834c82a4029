package document

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSource(t *testing.T) {
	t.Run("local path passes through", func(t *testing.T) {
		path := writeSource(t, "local content")
		got, cleanup, err := ResolveSource(context.Background(), path, "")
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, path, got)
	})

	t.Run("missing local path errors", func(t *testing.T) {
		_, _, err := ResolveSource(context.Background(), "/no/such/file.pdf", "")
		assert.Error(t, err)
	})

	t.Run("remote source downloads to a temp file", func(t *testing.T) {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte("%PDF-1.4 remote"))
		}))
		defer srv.Close()

		path, cleanup, err := ResolveSource(context.Background(), srv.URL, "secret-token")
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret-token", gotAuth)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 remote", string(data))

		cleanup()
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err), "cleanup removes the temp file")
	})

	t.Run("non-200 response errors", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, _, err := ResolveSource(context.Background(), srv.URL, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 403")
	})
}
