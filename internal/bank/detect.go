package bank

import (
	"log/slog"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/FACorreiaa/statement-ocr/internal/document"
)

// Supported institution names.
const (
	BankOfAmericaName = "Bank of America"
	ChaseName         = "Chase"
)

// bankKeywords maps first-page phrases to institutions. Order matters: more
// specific phrases come first so a hit on them wins over generic ones. Every
// phrase must be distinctive enough to survive substring matching; a bare
// institution name that occurs inside common statement vocabulary (e.g.
// "chase" inside "purchases") does not qualify.
var bankKeywords = []struct {
	Phrase string
	Bank   string
}{
	{"bank of america", BankOfAmericaName},
	{"bankofamerica", BankOfAmericaName},
	{"jpmorgan chase", ChaseName},
	{"chase bank", ChaseName},
	{"chase.com", ChaseName},
}

// keywordMatcher scans for all bank phrases in one pass.
var keywordMatcher = func() *ahocorasick.Matcher {
	patterns := make([]string, len(bankKeywords))
	for i, kw := range bankKeywords {
		patterns[i] = kw.Phrase
	}
	return ahocorasick.NewStringMatcher(patterns)
}()

// DetectBank identifies the institution from first-page text via a
// multi-pattern keyword scan. Returns the empty string when no keyword hits.
func DetectBank(firstPageText string) string {
	hits := keywordMatcher.Match([]byte(strings.ToLower(firstPageText)))
	if len(hits) == 0 {
		return ""
	}

	best := len(bankKeywords)
	for _, hit := range hits {
		if hit < best {
			best = hit
		}
	}
	if best == len(bankKeywords) {
		return ""
	}
	return bankKeywords[best].Bank
}

// Select returns the parser for the detected institution, or the generic
// floor fallback when the bank is unrecognized.
func Select(bankName string, loader *document.Loader, logger *slog.Logger, opts Options) Parser {
	switch bankName {
	case BankOfAmericaName:
		return NewBankOfAmerica(loader, logger, opts)
	case ChaseName:
		return NewChase(loader, logger, opts)
	default:
		return NewGeneric(bankName, loader, logger)
	}
}
