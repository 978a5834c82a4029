// Package bank holds the per-institution statement parsers. Each parser
// orchestrates the document loader, template extraction, and geometric table
// reconstruction in an order specific to that bank's layout, producing one
// ProcessedStatementData. Parsers never propagate errors to their caller:
// every internal failure degrades to the best-effort partial result built so
// far.
package bank

import (
	"context"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/tablegeom"
)

// Parser is the shared capability every institution variant implements.
type Parser interface {
	Name() string
	Process(ctx context.Context) *statement.ProcessedStatementData
}

// Options carries the tuned heuristic parameters shared by the parsers. The
// defaults were calibrated against specific bank layouts; fixtures for other
// layouts can adjust them.
type Options struct {
	// Table configures generic (summary) table reconstruction.
	Table tablegeom.Options
	// TransactionTable configures the stricter transaction-table variant.
	TransactionTable tablegeom.Options
	// SummaryHeaderMinimum is how many of the account-summary header
	// keywords a row must hit to be treated as a pure header row.
	SummaryHeaderMinimum int
	// ColumnHintMinimum is how many of the summary-table column hints a
	// table descriptor's headers must hit to be accepted as the account
	// summary table.
	ColumnHintMinimum int
}

// DefaultOptions returns the empirically tuned defaults.
func DefaultOptions() Options {
	return Options{
		Table:                tablegeom.DefaultOptions(),
		TransactionTable:     tablegeom.TransactionOptions(),
		SummaryHeaderMinimum: 2,
		ColumnHintMinimum:    2,
	}
}
