// Package repository persists parsed statements, their accounts, and their
// transactions. It is the output boundary of the parsing pipeline.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
)

// ProcessingStatus tracks a statement record through the pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// StatementRecord is the durable row for one uploaded statement.
type StatementRecord struct {
	ID           uuid.UUID
	FileName     string
	SourcePath   string
	MimeType     string
	Status       ProcessingStatus
	ErrorMessage string
	BankName     string
	PeriodStart  string
	PeriodEnd    string
	TotalBalance *decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransactionRecord is the durable row for one parsed transaction.
type TransactionRecord struct {
	ID           uuid.UUID
	StatementID  uuid.UUID
	AccountLast4 string
	Date         string
	Description  string
	Amount       decimal.Decimal
	Type         string
}

// StatementRepository is the persistence contract consumed by the service
// layer.
type StatementRepository interface {
	CreateStatement(ctx context.Context, rec *StatementRecord) error
	GetStatement(ctx context.Context, id uuid.UUID) (*StatementRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProcessingStatus, errorMessage string) error
	SaveResult(ctx context.Context, id uuid.UUID, data *statement.ProcessedStatementData) error
	ListTransactions(ctx context.Context, statementID uuid.UUID) ([]TransactionRecord, error)
}

// DB is the subset of pgxpool.Pool the repository uses; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}
