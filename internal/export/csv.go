// Package export writes parsed statement transactions as CSV.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/statement/repository"
)

// TransactionRow is the flat CSV shape of one transaction.
type TransactionRow struct {
	AccountLast4 string `csv:"account_last4"`
	AccountType  string `csv:"account_type"`
	Date         string `csv:"date"`
	Description  string `csv:"description"`
	Amount       string `csv:"amount"`
	Type         string `csv:"type"`
}

// WriteTransactions flattens every account's transactions into CSV rows in
// bucket order and writes them with a header row.
func WriteTransactions(w io.Writer, data *statement.ProcessedStatementData) error {
	var rows []TransactionRow
	for _, acct := range data.Accounts {
		for _, tx := range acct.Transactions.All() {
			rows = append(rows, TransactionRow{
				AccountLast4: acct.AccountNumberLast4,
				AccountType:  acct.AccountType,
				Date:         tx.Date,
				Description:  tx.Description,
				Amount:       tx.Amount.StringFixed(2),
				Type:         string(tx.Type),
			})
		}
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("export: marshal transactions: %w", err)
	}
	return nil
}

// WriteTransactionRecords writes persisted transaction rows as CSV. The
// account type is not stored per transaction, so that column stays empty.
func WriteTransactionRecords(w io.Writer, records []repository.TransactionRecord) error {
	rows := make([]TransactionRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, TransactionRow{
			AccountLast4: rec.AccountLast4,
			Date:         rec.Date,
			Description:  rec.Description,
			Amount:       rec.Amount.StringFixed(2),
			Type:         rec.Type,
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("export: marshal transaction records: %w", err)
	}
	return nil
}
