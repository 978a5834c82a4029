package bank

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
)

// FallbackExtraction is the result of the pure text heuristics used when no
// dedicated parser applies, or as the informational basis for duplicate
// detection. It carries no geometry and no per-transaction detail.
type FallbackExtraction struct {
	BankName           string
	AccountType        string
	AccountNumberLast4 string
	Balance            *decimal.Decimal
	PeriodStart        string
	PeriodEnd          string
}

// knownBanks is the static institution list tried before the regex fallback.
var knownBanks = []string{
	"Bank of America",
	"Chase",
	"Wells Fargo",
	"Citibank",
	"Capital One",
	"US Bank",
	"PNC Bank",
	"TD Bank",
	"Truist",
	"Fifth Third Bank",
	"Ally Bank",
	"Charles Schwab",
	"Navy Federal Credit Union",
}

var (
	bankNameRe = regexp.MustCompile(`(?m)^\s*([A-Z][A-Za-z&.'\- ]{2,40}(?:Bank|Credit Union|N\.A\.))\b`)

	explicitLast4Re = regexp.MustCompile(`(?i)account\s*(?:number|no\.?|#)\s*:?\s*[\sxX*•-]*(\d{4})\b`)
	maskedLast4Re   = regexp.MustCompile(`[xX*•]{2,}[\s-]?(\d{4})\b`)

	labeledBalanceRe = regexp.MustCompile(`(?i)(?:current|ending|new)\s+balance[^$\d-]*(-?\$?[\d,]+\.\d{2})`)
	anyCurrencyRe    = regexp.MustCompile(`\$[\d,]+\.\d{2}`)

	fallbackDateAlt = `(?:\d{1,2}/\d{1,2}/\d{2,4}|(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`
	periodFromToRe  = regexp.MustCompile(`(?i)(?:from\s+)?(` + fallbackDateAlt + `)\s+(?:to|through)\s+(` + fallbackDateAlt + `)`)
	statementDateRe = regexp.MustCompile(`(?i)(?:statement date|as of)[:\s]+(` + fallbackDateAlt + `)`)
)

// ExtractFromText derives bank identity, account type, last-four digits,
// balance, and statement period directly from unstructured document text.
// Every field degrades independently; misses leave zero values.
func ExtractFromText(text string) FallbackExtraction {
	return FallbackExtraction{
		BankName:           extractBankName(text),
		AccountType:        extractAccountType(text),
		AccountNumberLast4: extractLast4(text),
		Balance:            extractBalance(text),
		PeriodStart:        extractPeriodStart(text),
		PeriodEnd:          extractPeriodEnd(text),
	}
}

// ToStatement lifts the flat extraction into the pipeline output shape: one
// account referenced to page 1.
func (f FallbackExtraction) ToStatement(rawText string) *statement.ProcessedStatementData {
	result := statement.NewProcessedStatementData(f.BankName)
	result.RawText = rawText
	result.StatementPeriodStartDate = f.PeriodStart
	result.StatementPeriodEndDate = f.PeriodEnd

	acct := statement.NewAccount(f.AccountNumberLast4, f.AccountType, 1)
	acct.Metadata.EndingBalance = f.Balance
	result.Accounts = []*statement.Account{acct}
	result.SumEndingBalances()
	return result
}

// extractBankName tries the static list verbatim, then a name-shaped regex
// whose capture is fuzzy-ranked against the list to absorb OCR noise.
func extractBankName(text string) string {
	lower := strings.ToLower(text)
	for _, bank := range knownBanks {
		if strings.Contains(lower, strings.ToLower(bank)) {
			return bank
		}
	}

	m := bankNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	candidate := strings.TrimSpace(m[1])

	ranks := fuzzy.RankFindNormalizedFold(candidate, knownBanks)
	if len(ranks) > 0 {
		return ranks[0].Target
	}
	return candidate
}

// extractAccountType classifies with fixed precedence: checking before
// savings before credit before investment.
func extractAccountType(text string) string {
	if t := accountTypeFromText(text); t != "" {
		return t
	}
	return "other"
}

// extractLast4 prefers the explicit "account number: ****1234" style over a
// bare masked digit group.
func extractLast4(text string) string {
	if m := explicitLast4Re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := maskedLast4Re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// extractBalance prefers explicitly labeled current/ending/new balance
// phrasing, falling back to the first currency-looking number.
func extractBalance(text string) *decimal.Decimal {
	if m := labeledBalanceRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseCurrency(m[1]); ok {
			return &v
		}
	}
	if m := anyCurrencyRe.FindString(text); m != "" {
		if v, ok := parseCurrency(m); ok {
			return &v
		}
	}
	return nil
}

func extractPeriodStart(text string) string {
	if m := periodFromToRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	// A lone statement date estimates the period start as the first of its
	// month.
	if m := statementDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseFallbackDate(m[1]); ok {
			return fmt.Sprintf("%02d/01/%d", int(t.Month()), t.Year())
		}
	}
	return ""
}

func extractPeriodEnd(text string) string {
	if m := periodFromToRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[2])
	}
	if m := statementDateRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var fallbackDateFormats = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"January 2, 2006",
	"January 2 2006",
}

func parseFallbackDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, format := range fallbackDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
