package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
)

// PostgresStatementRepository implements StatementRepository on pgx.
type PostgresStatementRepository struct {
	db DB
}

// NewPostgresStatementRepository creates the repository.
func NewPostgresStatementRepository(db DB) *PostgresStatementRepository {
	return &PostgresStatementRepository{db: db}
}

var ErrNotFound = errors.New("repository: statement not found")

// CreateStatement inserts a pending statement record.
func (r *PostgresStatementRepository) CreateStatement(ctx context.Context, rec *StatementRecord) error {
	query := `
		INSERT INTO statements (id, file_name, source_path, mime_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}

	_, err := r.db.Exec(ctx, query, rec.ID, rec.FileName, rec.SourcePath, rec.MimeType, rec.Status)
	if err != nil {
		return fmt.Errorf("insert statement: %w", err)
	}
	return nil
}

// GetStatement loads one statement record.
func (r *PostgresStatementRepository) GetStatement(ctx context.Context, id uuid.UUID) (*StatementRecord, error) {
	query := `
		SELECT id, file_name, source_path, mime_type, status,
		       COALESCE(error_message, ''), COALESCE(bank_name, ''),
		       COALESCE(period_start, ''), COALESCE(period_end, ''),
		       total_balance, created_at, updated_at
		FROM statements
		WHERE id = $1`

	rec := &StatementRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.FileName, &rec.SourcePath, &rec.MimeType, &rec.Status,
		&rec.ErrorMessage, &rec.BankName, &rec.PeriodStart, &rec.PeriodEnd,
		&rec.TotalBalance, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select statement: %w", err)
	}
	return rec, nil
}

// UpdateStatus transitions a statement's processing state.
func (r *PostgresStatementRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ProcessingStatus, errorMessage string) error {
	query := `
		UPDATE statements
		SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("update statement status: %w", err)
	}
	return nil
}

// SaveResult writes the parsed accounts and transactions in one transaction
// and stamps the statement row with bank and period. Transactions always
// carry a parsed amount by construction; rows that lacked one never reached
// the model.
func (r *PostgresStatementRepository) SaveResult(ctx context.Context, id uuid.UUID, data *statement.ProcessedStatementData) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save result: %w", err)
	}
	defer tx.Rollback(ctx)

	updateQuery := `
		UPDATE statements
		SET bank_name = NULLIF($2, ''), period_start = NULLIF($3, ''),
		    period_end = NULLIF($4, ''), total_balance = $5, updated_at = NOW()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, updateQuery, id, data.BankName,
		data.StatementPeriodStartDate, data.StatementPeriodEndDate, data.TotalBalance); err != nil {
		return fmt.Errorf("update statement result: %w", err)
	}

	accountQuery := `
		INSERT INTO statement_accounts
			(id, statement_id, account_last4, account_type, page_reference,
			 beginning_balance, ending_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	txQuery := `
		INSERT INTO statement_transactions
			(id, statement_id, account_id, tx_date, description, amount, tx_type, raw_row_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for _, acct := range data.Accounts {
		accountID := uuid.New()
		if _, err := tx.Exec(ctx, accountQuery, accountID, id,
			acct.AccountNumberLast4, acct.AccountType, acct.PageReference,
			acct.Metadata.BeginningBalance, acct.Metadata.EndingBalance); err != nil {
			return fmt.Errorf("insert account %s: %w", acct.AccountNumberLast4, err)
		}

		for _, t := range acct.Transactions.All() {
			if _, err := tx.Exec(ctx, txQuery, uuid.New(), id, accountID,
				t.Date, t.Description, t.Amount, string(t.Type), t.RawRowText); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save result: %w", err)
	}
	return nil
}

// ListTransactions returns a statement's transactions joined to their
// account's last four digits.
func (r *PostgresStatementRepository) ListTransactions(ctx context.Context, statementID uuid.UUID) ([]TransactionRecord, error) {
	query := `
		SELECT t.id, t.statement_id, a.account_last4, t.tx_date,
		       t.description, t.amount, t.tx_type
		FROM statement_transactions t
		JOIN statement_accounts a ON a.id = t.account_id
		WHERE t.statement_id = $1
		ORDER BY a.account_last4, t.tx_date`

	rows, err := r.db.Query(ctx, query, statementID)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var out []TransactionRecord
	for rows.Next() {
		var rec TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.StatementID, &rec.AccountLast4,
			&rec.Date, &rec.Description, &rec.Amount, &rec.Type); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
