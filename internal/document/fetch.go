package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var fetchClient = &http.Client{Timeout: 2 * time.Minute}

// ResolveSource turns a source reference — a local file path or an HTTP(S)
// URL — into a readable local path. Remote sources are downloaded to a
// temporary file; the returned cleanup must be called when processing
// finishes (success or failure) and removes that file. For local paths the
// cleanup is a no-op.
func ResolveSource(ctx context.Context, source, bearerToken string) (string, func(), error) {
	noop := func() {}

	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		if _, err := os.Stat(source); err != nil {
			return "", noop, fmt.Errorf("source file not accessible: %w", err)
		}
		return source, noop, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", noop, fmt.Errorf("build source request: %w", err)
	}
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("fetch source document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("fetch source document: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "statement-src-*")
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { os.Remove(tmpPath) }

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("close temp file: %w", err)
	}

	return tmpPath, cleanup, nil
}
