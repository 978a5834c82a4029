package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/statement/repository"
	"github.com/FACorreiaa/statement-ocr/pkg/storage"
)

type fakeRepo struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*repository.StatementRecord
	statuses []repository.ProcessingStatus
	saved    *statement.ProcessedStatementData

	createErr error
	saveErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[uuid.UUID]*repository.StatementRecord)}
}

func (f *fakeRepo) CreateStatement(_ context.Context, rec *repository.StatementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeRepo) GetStatement(_ context.Context, id uuid.UUID) (*repository.StatementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status repository.ProcessingStatus, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	if rec, ok := f.records[id]; ok {
		rec.Status = status
		rec.ErrorMessage = errorMessage
	}
	return nil
}

func (f *fakeRepo) SaveResult(_ context.Context, _ uuid.UUID, data *statement.ProcessedStatementData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = data
	return nil
}

func (f *fakeRepo) ListTransactions(context.Context, uuid.UUID) ([]repository.TransactionRecord, error) {
	return nil, nil
}

func (f *fakeRepo) statusTrail() []repository.ProcessingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.ProcessingStatus(nil), f.statuses...)
}

func (f *fakeRepo) savedResult() *statement.ProcessedStatementData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

type fakeStorage struct {
	dir     string
	removed []uuid.UUID
}

func (f *fakeStorage) Save(_ context.Context, statementID uuid.UUID, filename, contentType string, r io.Reader) (*storage.FileInfo, error) {
	path := filepath.Join(f.dir, statementID.String()+".pdf")
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return &storage.FileInfo{
		StatementID: statementID,
		Name:        filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		Path:        path,
	}, nil
}

func (f *fakeStorage) Open(context.Context, uuid.UUID) (io.ReadCloser, *storage.FileInfo, error) {
	return nil, nil, errors.New("not implemented")
}

func (f *fakeStorage) Remove(_ context.Context, statementID uuid.UUID) error {
	f.removed = append(f.removed, statementID)
	return nil
}

type fakeOCR struct {
	doc *documentaipb.Document
	err error
}

func (f *fakeOCR) ProcessDocument(context.Context, []byte, string) (*documentaipb.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeOCR) ProcessorID() string { return "fake-processor" }

// singlePageDoc builds a one-page document whose text is laid out as one
// paragraph per line.
func singlePageDoc(lines ...string) *documentaipb.Document {
	var sb strings.Builder
	page := &documentaipb.Document_Page{}
	for i, line := range lines {
		start := int64(sb.Len())
		sb.WriteString(line)
		end := int64(sb.Len())
		sb.WriteString("\n")
		y := float32(i) * 0.05
		page.Paragraphs = append(page.Paragraphs, &documentaipb.Document_Page_Paragraph{
			Layout: &documentaipb.Document_Page_Layout{
				TextAnchor: &documentaipb.Document_TextAnchor{
					TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
						{StartIndex: start, EndIndex: end},
					},
				},
				BoundingPoly: &documentaipb.BoundingPoly{
					NormalizedVertices: []*documentaipb.NormalizedVertex{
						{X: 0.1, Y: y}, {X: 0.9, Y: y + 0.02},
					},
				},
			},
		})
	}
	return &documentaipb.Document{Text: sb.String(), Pages: []*documentaipb.Document_Page{page}}
}

func serviceLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestUploadStatement(t *testing.T) {
	t.Run("pending record returned immediately, parse lands in repo", func(t *testing.T) {
		repo := newFakeRepo()
		store := &fakeStorage{dir: t.TempDir()}
		// No OCR processor: the parse degrades to the base result but the
		// statement still completes.
		svc := NewStatementService(repo, store, nil, nil, serviceLogger())

		rec, err := svc.UploadStatement(context.Background(), "january.pdf", "application/pdf",
			bytes.NewBufferString("%PDF-1.4 fake"))
		require.NoError(t, err)
		assert.Equal(t, repository.StatusPending, rec.Status)
		assert.Equal(t, "january.pdf", rec.FileName)

		svc.Wait()

		trail := repo.statusTrail()
		require.Len(t, trail, 2)
		assert.Equal(t, repository.StatusProcessing, trail[0])
		assert.Equal(t, repository.StatusCompleted, trail[1])

		saved := repo.savedResult()
		require.NotNil(t, saved)
		assert.Empty(t, saved.BankName)
		assert.Empty(t, saved.Accounts)
	})

	t.Run("create failure removes the stored upload", func(t *testing.T) {
		repo := newFakeRepo()
		repo.createErr = errors.New("db down")
		store := &fakeStorage{dir: t.TempDir()}
		svc := NewStatementService(repo, store, nil, nil, serviceLogger())

		_, err := svc.UploadStatement(context.Background(), "january.pdf", "",
			bytes.NewBufferString("x"))
		require.Error(t, err)
		assert.Len(t, store.removed, 1)
	})

	t.Run("persistence failure marks the statement failed", func(t *testing.T) {
		repo := newFakeRepo()
		repo.saveErr = errors.New("constraint violation")
		store := &fakeStorage{dir: t.TempDir()}
		svc := NewStatementService(repo, store, nil, nil, serviceLogger())

		_, err := svc.UploadStatement(context.Background(), "january.pdf", "application/pdf",
			bytes.NewBufferString("x"))
		require.NoError(t, err)
		svc.Wait()

		trail := repo.statusTrail()
		require.Len(t, trail, 2)
		assert.Equal(t, repository.StatusFailed, trail[1])
	})
}

func TestProcessSource(t *testing.T) {
	writeFile := func(t *testing.T) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "statement.pdf")
		require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
		return path
	}

	t.Run("unknown bank falls back to text heuristics", func(t *testing.T) {
		ocr := &fakeOCR{doc: singlePageDoc(
			"Wells Fargo",
			"Account number: ****9876",
			"Your Savings account",
			"Ending balance $120.00",
		)}
		svc := NewStatementService(newFakeRepo(), &fakeStorage{dir: t.TempDir()}, ocr, nil, serviceLogger())

		data, err := svc.ProcessSource(context.Background(), writeFile(t), "", "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "Wells Fargo", data.BankName)
		require.Len(t, data.Accounts, 1)
		assert.Equal(t, "9876", data.Accounts[0].AccountNumberLast4)
	})

	t.Run("known bank routes to its parser", func(t *testing.T) {
		ocr := &fakeOCR{doc: singlePageDoc(
			"Bank of America",
			"Account number: ****1234",
			"Your Checking account",
		)}
		svc := NewStatementService(newFakeRepo(), &fakeStorage{dir: t.TempDir()}, ocr, nil, serviceLogger())

		data, err := svc.ProcessSource(context.Background(), writeFile(t), "", "application/pdf")
		require.NoError(t, err)
		assert.Equal(t, "Bank of America", data.BankName)
		require.Len(t, data.Accounts, 1)
		assert.Equal(t, "1234", data.Accounts[0].AccountNumberLast4)
	})

	t.Run("ocr failure yields the base result", func(t *testing.T) {
		ocr := &fakeOCR{err: errors.New("quota exceeded")}
		svc := NewStatementService(newFakeRepo(), &fakeStorage{dir: t.TempDir()}, ocr, nil, serviceLogger())

		data, err := svc.ProcessSource(context.Background(), writeFile(t), "", "application/pdf")
		require.NoError(t, err)
		assert.Empty(t, data.BankName)
		assert.Empty(t, data.Accounts)
		assert.Nil(t, data.TotalBalance)
	})
}
