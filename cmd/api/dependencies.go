package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/statement-ocr/internal/docai"
	statementhandler "github.com/FACorreiaa/statement-ocr/internal/statement/handler"
	statementrepo "github.com/FACorreiaa/statement-ocr/internal/statement/repository"
	statementservice "github.com/FACorreiaa/statement-ocr/internal/statement/service"
	"github.com/FACorreiaa/statement-ocr/pkg/config"
	"github.com/FACorreiaa/statement-ocr/pkg/cron"
	"github.com/FACorreiaa/statement-ocr/pkg/db"
	"github.com/FACorreiaa/statement-ocr/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	StatementRepo statementrepo.StatementRepository
	FileStorage   storage.Storage
	OCRClient     *docai.Client
	OCRCache      *docai.ResultCache

	StatementService *statementservice.StatementService
	Scheduler        *cron.Scheduler

	StatementHandler *statementhandler.StatementHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.StatementHandler = statementhandler.NewStatementHandler(deps.StatementService, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes the storage, OCR, service, and scheduler layers
func (d *Dependencies) initServices(ctx context.Context) error {
	d.StatementRepo = statementrepo.NewPostgresStatementRepository(d.DB.Pool)

	fileStorage, err := storage.NewLocalStorage(d.Config.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	cache, err := docai.NewResultCache(d.Config.DocumentAI.CacheDir, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to init OCR cache: %w", err)
	}
	d.OCRCache = cache

	// OCR stays optional: without a processor every upload completes with a
	// minimal result instead of erroring.
	ocrClient, err := docai.NewClient(ctx, docai.Config{
		ProjectID:         d.Config.DocumentAI.ProjectID,
		Location:          d.Config.DocumentAI.Location,
		ProcessorID:       d.Config.DocumentAI.ProcessorID,
		CredentialsFile:   d.Config.DocumentAI.CredentialsFile,
		RequestsPerMinute: d.Config.DocumentAI.RequestsPerMinute,
	})
	if err != nil {
		d.Logger.Warn("OCR processor unavailable, statements will degrade to minimal results", slog.Any("error", err))
	} else {
		d.OCRClient = ocrClient
	}

	var processor docai.Processor
	if d.OCRClient != nil {
		processor = d.OCRClient
	}
	d.StatementService = statementservice.NewStatementService(
		d.StatementRepo, d.FileStorage, processor, d.OCRCache, d.Logger,
	)

	d.Scheduler = cron.NewScheduler(d.OCRCache, d.Config.DocumentAI.CacheMaxAge, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.StatementService != nil {
		d.StatementService.Wait()
	}
	if d.OCRClient != nil {
		if err := d.OCRClient.Close(); err != nil {
			d.Logger.Warn("failed to close OCR client", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
