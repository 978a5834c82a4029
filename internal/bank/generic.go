package bank

import (
	"context"
	"log/slog"

	"github.com/FACorreiaa/statement-ocr/internal/document"
	"github.com/FACorreiaa/statement-ocr/internal/statement"
)

// Generic is the floor fallback for unrecognized institutions: bank name and
// raw text only, empty accounts and period. Callers layer the text-heuristic
// account extractor on top when they need more.
type Generic struct {
	bankName string
	loader   *document.Loader
	logger   *slog.Logger
}

// NewGeneric builds the fallback parser. bankName may be empty.
func NewGeneric(bankName string, loader *document.Loader, logger *slog.Logger) *Generic {
	return &Generic{bankName: bankName, loader: loader, logger: logger}
}

func (p *Generic) Name() string { return p.bankName }

// Process returns the base result.
func (p *Generic) Process(_ context.Context) *statement.ProcessedStatementData {
	result := statement.NewProcessedStatementData(p.bankName)
	if p.loader != nil {
		result.RawText = p.loader.FullText()
	}
	return result
}
