// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/statement-ocr/internal/docai"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron        *cron.Cron
	cache       *docai.ResultCache
	cacheMaxAge time.Duration
	logger      *slog.Logger
}

// NewScheduler creates a new job scheduler. Cached OCR results older than
// cacheMaxAge are pruned nightly.
func NewScheduler(cache *docai.ResultCache, cacheMaxAge time.Duration, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:        c,
		cache:       cache,
		cacheMaxAge: cacheMaxAge,
		logger:      logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// OCR cache pruning: runs daily at 3:00 AM
	_, err := s.cron.AddFunc("0 3 * * *", s.pruneOCRCache)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the cache prune (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.pruneOCRCache()
}

func (s *Scheduler) pruneOCRCache() {
	if s.cache == nil {
		return
	}

	s.logger.Info("starting OCR cache prune", slog.Duration("max_age", s.cacheMaxAge))

	removed, err := s.cache.Prune(s.cacheMaxAge)
	if err != nil {
		s.logger.Error("OCR cache prune failed", slog.Any("error", err))
		return
	}

	s.logger.Info("OCR cache prune completed", slog.Int("entries_removed", removed))
}
