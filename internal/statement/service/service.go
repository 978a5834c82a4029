// Package service orchestrates statement processing: upload intake, OCR
// loading, bank detection, parsing, and persistence of the result.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-ocr/internal/bank"
	"github.com/FACorreiaa/statement-ocr/internal/docai"
	"github.com/FACorreiaa/statement-ocr/internal/document"
	"github.com/FACorreiaa/statement-ocr/internal/preflight"
	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/statement/repository"
	"github.com/FACorreiaa/statement-ocr/pkg/metrics"
	"github.com/FACorreiaa/statement-ocr/pkg/storage"
)

const defaultProcessTimeout = 10 * time.Minute

// StatementService owns the processing pipeline behind the HTTP surface.
// Uploads return immediately; parsing runs in a detached goroutine and its
// outcome lands in the repository as the statement's status.
type StatementService struct {
	repo   repository.StatementRepository
	store  storage.Storage
	ocr    docai.Processor
	cache  *docai.ResultCache
	opts   bank.Options
	logger *slog.Logger
	tracer trace.Tracer

	processTimeout time.Duration
	wg             sync.WaitGroup
}

// NewStatementService wires the pipeline. The OCR processor may be nil; every
// parse then degrades to the base result instead of failing the upload.
func NewStatementService(repo repository.StatementRepository, store storage.Storage, ocr docai.Processor, cache *docai.ResultCache, logger *slog.Logger) *StatementService {
	return &StatementService{
		repo:           repo,
		store:          store,
		ocr:            ocr,
		cache:          cache,
		opts:           bank.DefaultOptions(),
		logger:         logger,
		tracer:         otel.Tracer("statement-service"),
		processTimeout: defaultProcessTimeout,
	}
}

// WithParserOptions overrides the tuned parsing heuristics.
func (s *StatementService) WithParserOptions(opts bank.Options) *StatementService {
	s.opts = opts
	return s
}

// UploadStatement stores the upload, records it as pending, and starts
// processing in the background. The returned record is the pending row; poll
// GetStatement for the outcome.
func (s *StatementService) UploadStatement(ctx context.Context, filename, contentType string, r io.Reader) (*repository.StatementRecord, error) {
	id := uuid.New()
	if contentType == "" {
		contentType = "application/pdf"
	}

	info, err := s.store.Save(ctx, id, filename, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	rec := &repository.StatementRecord{
		ID:         id,
		FileName:   filename,
		SourcePath: info.Path,
		MimeType:   contentType,
		Status:     repository.StatusPending,
	}
	if err := s.repo.CreateStatement(ctx, rec); err != nil {
		if removeErr := s.store.Remove(ctx, id); removeErr != nil {
			s.logger.Warn("failed to remove orphaned upload", "statement_id", id, "error", removeErr)
		}
		return nil, fmt.Errorf("record upload: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.processTimeout)
		defer cancel()
		s.process(ctx, rec.ID, info.Path, contentType)
	}()

	return rec, nil
}

// ProcessSource runs the pipeline synchronously against a local path or
// HTTP(S) URL, without touching upload storage. Used by the CLI-style
// reprocess path and by tests.
func (s *StatementService) ProcessSource(ctx context.Context, source, bearerToken, mimeType string) (*statement.ProcessedStatementData, error) {
	path, cleanup, err := document.ResolveSource(ctx, source, bearerToken)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.parse(ctx, path, mimeType), nil
}

// GetStatement returns one statement record.
func (s *StatementService) GetStatement(ctx context.Context, id uuid.UUID) (*repository.StatementRecord, error) {
	return s.repo.GetStatement(ctx, id)
}

// ListTransactions returns a statement's parsed transactions.
func (s *StatementService) ListTransactions(ctx context.Context, id uuid.UUID) ([]repository.TransactionRecord, error) {
	return s.repo.ListTransactions(ctx, id)
}

// Wait blocks until all in-flight background parses finish. Called on
// shutdown.
func (s *StatementService) Wait() {
	s.wg.Wait()
}

// process is the background half of UploadStatement: run the pipeline,
// persist the result, and record the terminal status. It never panics out;
// parser-level recovery yields partial results and anything else lands in the
// failed status.
func (s *StatementService) process(ctx context.Context, id uuid.UUID, path, mimeType string) {
	ctx, span := s.tracer.Start(ctx, "statement.process",
		trace.WithAttributes(attribute.String("statement.id", id.String())))
	defer span.End()

	timer := prometheus.NewTimer(metrics.ParseDuration)
	defer timer.ObserveDuration()

	if err := s.repo.UpdateStatus(ctx, id, repository.StatusProcessing, ""); err != nil {
		s.logger.Error("failed to mark statement processing", "statement_id", id, "error", err)
	}

	data := s.parse(ctx, path, mimeType)

	if err := s.repo.SaveResult(ctx, id, data); err != nil {
		s.logger.Error("failed to persist parse result", "statement_id", id, "error", err)
		metrics.ParseFailures.Inc()
		if err := s.repo.UpdateStatus(ctx, id, repository.StatusFailed, err.Error()); err != nil {
			s.logger.Error("failed to mark statement failed", "statement_id", id, "error", err)
		}
		return
	}

	if err := s.repo.UpdateStatus(ctx, id, repository.StatusCompleted, ""); err != nil {
		s.logger.Error("failed to mark statement completed", "statement_id", id, "error", err)
	}

	bankLabel := data.BankName
	if bankLabel == "" {
		bankLabel = "unknown"
	}
	metrics.StatementsProcessed.WithLabelValues(bankLabel).Inc()
	s.logger.Info("statement processed",
		"statement_id", id,
		"bank", bankLabel,
		"accounts", len(data.Accounts),
	)
}

// parse runs the OCR pipeline over one local file. It always returns a
// result: when OCR is unavailable or fails, the base result with an empty
// bank name; when the bank is unrecognized, the text-heuristic fallback.
func (s *StatementService) parse(ctx context.Context, path, mimeType string) *statement.ProcessedStatementData {
	ctx, span := s.tracer.Start(ctx, "statement.parse")
	defer span.End()

	if report, err := preflight.Inspect(path); err != nil {
		s.logger.Debug("preflight inspection unavailable", "error", err)
	} else {
		s.logger.Info("preflight",
			"pages", report.PageCount,
			"has_text_layer", report.HasTextLayer,
			"text_density", report.TextDensity,
		)
	}

	loader := document.NewLoader(s.ocr, s.cache, s.logger)
	if !loader.Load(ctx, path, mimeType) {
		metrics.OCRRequests.WithLabelValues("error").Inc()
		return statement.NewProcessedStatementData("")
	}
	if loader.CacheHit {
		metrics.CacheHits.Inc()
	} else {
		metrics.OCRRequests.WithLabelValues("success").Inc()
	}

	firstPageText := ""
	if page := loader.ProcessPage(1); page != nil {
		firstPageText = page.FullText
	}

	bankName := bank.DetectBank(firstPageText)
	span.SetAttributes(attribute.String("statement.bank", bankName))

	if bankName == "" {
		s.logger.Info("no known bank detected, using text heuristics")
		fullText := loader.FullText()
		return bank.ExtractFromText(fullText).ToStatement(fullText)
	}

	parser := bank.Select(bankName, loader, s.logger, s.opts)
	return parser.Process(ctx)
}
