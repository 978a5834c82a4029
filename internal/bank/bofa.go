package bank

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ocr/internal/document"
	"github.com/FACorreiaa/statement-ocr/internal/document/template"
	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/tablegeom"
)

// BankOfAmerica is the reference parser. It handles both combined statements
// (multiple accounts, each with its own detail-page range announced in an
// account summary table) and single-account statements.
type BankOfAmerica struct {
	loader *document.Loader
	logger *slog.Logger
	opts   Options
}

// NewBankOfAmerica wires the parser to a loaded document.
func NewBankOfAmerica(loader *document.Loader, logger *slog.Logger, opts Options) *BankOfAmerica {
	return &BankOfAmerica{loader: loader, logger: logger, opts: opts}
}

func (p *BankOfAmerica) Name() string { return BankOfAmericaName }

// transactionSection describes one anchored transaction table.
type transactionSection struct {
	topAnchor    string
	bottomAnchor string
	txType       statement.TransactionType
}

var bofaSections = []transactionSection{
	{
		topAnchor:    "deposits and other additions",
		bottomAnchor: "total deposits and other additions",
		txType:       statement.TransactionDeposit,
	},
	{
		topAnchor:    "withdrawals and other subtractions",
		bottomAnchor: "total withdrawals and other subtractions",
		txType:       statement.TransactionWithdrawal,
	},
	{
		topAnchor:    "atm and debit card subtractions",
		bottomAnchor: "total atm and debit card subtractions",
		txType:       statement.TransactionATMDebit,
	},
}

// summaryLabels maps account-summary row labels to metadata setters. Label
// and value tolerate landing in the same or adjacent cells, so matching is a
// substring scan over the joined row.
var summaryLabels = []struct {
	label string
	set   func(*statement.AccountMetadata, decimal.Decimal)
}{
	{"beginning balance", func(m *statement.AccountMetadata, v decimal.Decimal) { m.BeginningBalance = &v }},
	{"ending balance", func(m *statement.AccountMetadata, v decimal.Decimal) { m.EndingBalance = &v }},
	{"deposits and other additions", func(m *statement.AccountMetadata, v decimal.Decimal) { m.DepositsTotal = &v }},
	{"atm and debit card subtractions", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ATMDebitTotal = &v }},
	{"checks", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ChecksTotal = &v }},
	{"service fees", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ServiceFees = &v }},
	{"other subtractions", func(m *statement.AccountMetadata, v decimal.Decimal) { m.OtherSubtractions = &v }},
}

// Process builds the structured statement. It never returns an error: any
// internal panic or miss degrades to whatever partial result has accumulated.
func (p *BankOfAmerica) Process(_ context.Context) (result *statement.ProcessedStatementData) {
	result = statement.NewProcessedStatementData(p.Name())

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parser panicked, returning partial result", "bank", p.Name(), "panic", r)
		}
	}()

	result.RawText = p.loader.FullText()

	page1 := p.loader.ProcessPage(1)
	if page1 == nil {
		return result
	}

	p.extractPeriod(page1, result)

	var accounts []*statement.Account
	if p.isCombinedStatement(page1) {
		accounts = p.parseAccountSummary(page1)
	}
	if len(accounts) == 0 {
		accounts = []*statement.Account{p.deriveSingleAccount(page1)}
	}
	result.Accounts = accounts

	for _, rng := range statement.PageRanges(accounts, p.loader.PageCount()) {
		p.processAccountRange(rng, accounts)
	}

	result.SumEndingBalances()
	return result
}

// isCombinedStatement classifies page 1 as covering multiple accounts: an
// explicit combined-statement phrase, or at least two distinct account
// number occurrences.
func (p *BankOfAmerica) isCombinedStatement(page *document.ProcessedPage) bool {
	if _, ok := page.FirstBlockMatching("combined statement"); ok {
		return true
	}

	extracted := template.Extract(page, template.AccountNumbers)
	distinct := map[string]struct{}{}
	for _, m := range extracted[template.TypeAccountLast4] {
		distinct[m.Value] = struct{}{}
	}
	return len(distinct) >= 2
}

// parseAccountSummary reconstructs the account summary table on a combined
// statement's first page into account stubs carrying page references and
// ending balances.
func (p *BankOfAmerica) parseAccountSummary(page *document.ProcessedPage) []*statement.Account {
	if !p.hasSummaryTable(page) {
		return nil
	}

	grid := tablegeom.Reconstruct(page.TextBlocks, tablegeom.Constraints{
		TopAnchor:    "your accounts",
		BottomAnchor: "total balance",
	}, p.opts.Table)

	var accounts []*statement.Account
	seen := map[string]struct{}{}
	for _, cells := range grid.AllRows() {
		cells = p.stripHeaderCells(cells)
		if len(cells) == 0 {
			continue
		}
		joined := strings.Join(cells, " ")

		last4 := findLast4(joined)
		if last4 == "" {
			continue
		}
		if _, dup := seen[last4]; dup {
			continue
		}
		seen[last4] = struct{}{}

		acct := statement.NewAccount(last4, accountTypeFromText(joined), findPageReference(joined))
		if acct.PageReference == 0 {
			acct.PageReference = 1
		}
		if balance, ok := parseCurrency(joined); ok {
			acct.Metadata.EndingBalance = &balance
		}
		accounts = append(accounts, acct)
	}
	return accounts
}

// hasSummaryTable checks the page's table descriptors for enough of the
// account-summary column hints.
func (p *BankOfAmerica) hasSummaryTable(page *document.ProcessedPage) bool {
	hints := []string{"account", "number", "balance", "page"}
	for _, table := range page.Tables {
		joined := strings.ToLower(strings.Join(table.HeaderCells, " "))
		matches := 0
		for _, hint := range hints {
			if strings.Contains(joined, hint) {
				matches++
			}
		}
		if matches >= p.opts.ColumnHintMinimum {
			return true
		}
	}
	// No descriptor is not fatal: the detector misses boxed summaries often
	// enough that the anchored reconstruction still gets a chance.
	return len(page.Tables) == 0
}

// stripHeaderCells drops header-keyword cells from a row. A row that is pure
// header (enough keyword hits, no account-number content) is removed
// entirely; a mixed row is filtered down to its non-header cells.
func (p *BankOfAmerica) stripHeaderCells(cells []string) []string {
	headerHits := 0
	var kept []string
	for _, cell := range cells {
		lower := strings.ToLower(cell)
		isHeader := false
		for _, kw := range []string{"account name", "account number", "ending balance", "details on"} {
			if strings.Contains(lower, kw) {
				isHeader = true
				break
			}
		}
		if isHeader {
			headerHits++
			continue
		}
		kept = append(kept, cell)
	}
	if headerHits >= p.opts.SummaryHeaderMinimum && findLast4(strings.Join(kept, " ")) == "" {
		return nil
	}
	return kept
}

// deriveSingleAccount sweeps page text for an account number and type,
// defaulting to the unknown sentinel and page reference 1.
func (p *BankOfAmerica) deriveSingleAccount(page *document.ProcessedPage) *statement.Account {
	last4 := ""
	extracted := template.Extract(page, template.AccountNumbers)
	if matches := extracted[template.TypeAccountLast4]; len(matches) > 0 {
		last4 = matches[0].Value
	}
	return statement.NewAccount(last4, accountTypeFromText(page.FullText), 1)
}

// processAccountRange fills one account from its page range: the account
// summary figures from the range's first page, then the anchored transaction
// tables on every page. Processing stops early when a later page carries a
// different account's number, which signals encroachment into the next
// account's section.
func (p *BankOfAmerica) processAccountRange(rng statement.PageRange, all []*statement.Account) {
	acct := rng.Account

	if page := p.loader.ProcessPage(rng.Start); page != nil {
		p.extractSummaryFigures(page, &acct.Metadata)
	}

	for n := rng.Start; n <= rng.End; n++ {
		page := p.loader.ProcessPage(n)
		if page == nil {
			continue
		}
		if n > rng.Start && p.pageBelongsToOther(page, acct, all) {
			p.logger.Debug("stopping range early, found another account's number",
				"page", n, "account", acct.AccountNumberLast4)
			break
		}
		p.extractTransactionTables(page, acct)
	}
}

// pageBelongsToOther reports whether the page mentions a different known
// account's last four digits.
func (p *BankOfAmerica) pageBelongsToOther(page *document.ProcessedPage, current *statement.Account, all []*statement.Account) bool {
	for _, other := range all {
		if other == current || other.AccountNumberLast4 == statement.UnknownAccountNumber {
			continue
		}
		if strings.Contains(page.FullText, other.AccountNumberLast4) {
			return true
		}
	}
	return false
}

// extractSummaryFigures scans a reconstructed grid of the page for
// label/value summary rows.
func (p *BankOfAmerica) extractSummaryFigures(page *document.ProcessedPage, meta *statement.AccountMetadata) {
	grid := tablegeom.Reconstruct(page.TextBlocks, tablegeom.Constraints{
		TopAnchor:    "account summary",
		BottomAnchor: "ending balance",
		// The ending balance row is itself a summary figure.
	}, withAnchorsIncluded(p.opts.Table))

	for _, cells := range grid.AllRows() {
		joined := strings.ToLower(strings.Join(cells, " "))
		value, ok := parseCurrency(strings.Join(cells, " "))
		if !ok {
			continue
		}
		for _, entry := range summaryLabels {
			if strings.Contains(joined, entry.label) {
				entry.set(meta, value)
				break
			}
		}
	}
}

// extractTransactionTables reconstructs each anchored section present on the
// page and buckets the resulting transactions. A missing anchor means the
// section is not on this page; it is skipped silently.
func (p *BankOfAmerica) extractTransactionTables(page *document.ProcessedPage, acct *statement.Account) {
	for _, section := range bofaSections {
		grid := tablegeom.ReconstructTransactions(page.TextBlocks, tablegeom.Constraints{
			TopAnchor:    section.topAnchor,
			BottomAnchor: section.bottomAnchor,
		}, p.opts.TransactionTable)
		if grid == nil {
			continue
		}
		for _, cells := range grid.Rows {
			tx, ok := rowToTransaction(cells, section.txType)
			if !ok {
				continue
			}
			bucketFor(acct, tx)
		}
	}
}

// extractPeriod prefers the explicit "Month D, YYYY to Month D, YYYY" form,
// falling back to the first two generic mm/dd/yyyy matches on the page.
func (p *BankOfAmerica) extractPeriod(page *document.ProcessedPage, result *statement.ProcessedStatementData) {
	extracted := template.Extract(page, template.Dates)

	if periods := extracted[template.TypeStatementPeriod]; len(periods) > 0 {
		if start, end, ok := splitPeriod(periods[0].Value); ok {
			result.StatementPeriodStartDate = start
			result.StatementPeriodEndDate = end
			return
		}
	}

	dates := extracted[template.TypeDate]
	if len(dates) >= 2 {
		result.StatementPeriodStartDate = dates[0].Value
		result.StatementPeriodEndDate = dates[1].Value
	}
}

// splitPeriod splits "Month D, YYYY to Month D, YYYY" on its connective.
func splitPeriod(s string) (string, string, bool) {
	for _, sep := range []string{" to ", " through ", " - "} {
		if idx := strings.Index(strings.ToLower(s), sep); idx >= 0 {
			start := strings.TrimSpace(s[:idx])
			end := strings.TrimSpace(s[idx+len(sep):])
			if start != "" && end != "" {
				return start, end, true
			}
		}
	}
	return "", "", false
}

// accountTypeFromText classifies with fixed precedence.
func accountTypeFromText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "checking"):
		return "checking"
	case strings.Contains(lower, "savings"):
		return "savings"
	case strings.Contains(lower, "credit"):
		return "credit"
	case strings.Contains(lower, "investment"):
		return "investment"
	default:
		return ""
	}
}

// bucketFor appends a transaction to the account bucket matching its type.
func bucketFor(acct *statement.Account, tx statement.Transaction) {
	switch tx.Type {
	case statement.TransactionDeposit:
		acct.Transactions.Deposits = append(acct.Transactions.Deposits, tx)
	case statement.TransactionATMDebit:
		acct.Transactions.ATMDebit = append(acct.Transactions.ATMDebit, tx)
	case statement.TransactionWithdrawal:
		acct.Transactions.Withdrawals = append(acct.Transactions.Withdrawals, tx)
	default:
		acct.Transactions.Other = append(acct.Transactions.Other, tx)
	}
}

// withAnchorsIncluded copies table options with anchor rows retained.
func withAnchorsIncluded(opts tablegeom.Options) tablegeom.Options {
	opts.IncludeAnchors = true
	return opts
}
