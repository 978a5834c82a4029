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

// Chase parses Chase consumer statements. Chase does not issue combined
// statements the way the reference layout does, so this parser derives a
// single account from the summary page and walks the whole document for its
// anchored sections.
type Chase struct {
	loader *document.Loader
	logger *slog.Logger
	opts   Options
}

// NewChase wires the parser to a loaded document.
func NewChase(loader *document.Loader, logger *slog.Logger, opts Options) *Chase {
	return &Chase{loader: loader, logger: logger, opts: opts}
}

func (p *Chase) Name() string { return ChaseName }

var chaseSections = []transactionSection{
	{
		topAnchor:    "deposits and additions",
		bottomAnchor: "total deposits and additions",
		txType:       statement.TransactionDeposit,
	},
	{
		topAnchor:    "electronic withdrawals",
		bottomAnchor: "total electronic withdrawals",
		txType:       statement.TransactionWithdrawal,
	},
	{
		topAnchor:    "atm & debit card withdrawals",
		bottomAnchor: "total atm & debit card withdrawals",
		txType:       statement.TransactionATMDebit,
	},
}

// chaseSummaryLabels maps summary row labels to metadata setters. Matching is
// first hit in slice order, so a label must precede any other label whose text
// it contains.
var chaseSummaryLabels = []struct {
	label string
	set   func(*statement.AccountMetadata, decimal.Decimal)
}{
	{"beginning balance", func(m *statement.AccountMetadata, v decimal.Decimal) { m.BeginningBalance = &v }},
	{"ending balance", func(m *statement.AccountMetadata, v decimal.Decimal) { m.EndingBalance = &v }},
	{"deposits and additions", func(m *statement.AccountMetadata, v decimal.Decimal) { m.DepositsTotal = &v }},
	{"atm & debit card withdrawals", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ATMDebitTotal = &v }},
	{"checks paid", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ChecksTotal = &v }},
	{"fees", func(m *statement.AccountMetadata, v decimal.Decimal) { m.ServiceFees = &v }},
	{"electronic withdrawals", func(m *statement.AccountMetadata, v decimal.Decimal) { m.OtherSubtractions = &v }},
}

// Process builds the structured statement; never propagates errors.
func (p *Chase) Process(_ context.Context) (result *statement.ProcessedStatementData) {
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

	acct := p.deriveAccount(page1)
	result.Accounts = []*statement.Account{acct}

	if page := p.findSummaryPage(); page != nil {
		p.extractSummaryFigures(page, &acct.Metadata)
	}

	for n := 1; n <= p.loader.PageCount(); n++ {
		page := p.loader.ProcessPage(n)
		if page == nil {
			continue
		}
		for _, section := range chaseSections {
			grid := tablegeom.ReconstructTransactions(page.TextBlocks, tablegeom.Constraints{
				TopAnchor:    section.topAnchor,
				BottomAnchor: section.bottomAnchor,
			}, p.opts.TransactionTable)
			if grid == nil {
				continue
			}
			for _, cells := range grid.Rows {
				if tx, ok := rowToTransaction(cells, section.txType); ok {
					bucketFor(acct, tx)
				}
			}
		}
	}

	result.SumEndingBalances()
	return result
}

// deriveAccount sweeps the summary page for the account number and type.
func (p *Chase) deriveAccount(page *document.ProcessedPage) *statement.Account {
	last4 := ""
	extracted := template.Extract(page, template.AccountNumbers)
	if matches := extracted[template.TypeAccountLast4]; len(matches) > 0 {
		last4 = matches[0].Value
	}
	return statement.NewAccount(last4, accountTypeFromText(page.FullText), 1)
}

// findSummaryPage locates the checking/savings summary section.
func (p *Chase) findSummaryPage() *document.ProcessedPage {
	for n := 1; n <= p.loader.PageCount(); n++ {
		page := p.loader.ProcessPage(n)
		if page == nil {
			continue
		}
		if _, ok := page.FirstBlockMatching("checking summary"); ok {
			return page
		}
		if _, ok := page.FirstBlockMatching("savings summary"); ok {
			return page
		}
	}
	return nil
}

// extractSummaryFigures scans the summary section rows for label/value
// pairs. Labels are matched in declaration order, first hit wins.
func (p *Chase) extractSummaryFigures(page *document.ProcessedPage, meta *statement.AccountMetadata) {
	grid := tablegeom.Reconstruct(page.TextBlocks, tablegeom.Constraints{
		TopAnchor:    "summary",
		BottomAnchor: "ending balance",
	}, withAnchorsIncluded(p.opts.Table))

	for _, cells := range grid.AllRows() {
		joined := strings.ToLower(strings.Join(cells, " "))
		value, ok := parseCurrency(strings.Join(cells, " "))
		if !ok {
			continue
		}
		for _, entry := range chaseSummaryLabels {
			if strings.Contains(joined, entry.label) {
				entry.set(meta, value)
				break
			}
		}
	}
}

// extractPeriod mirrors the reference parser's preference order: the explicit
// "Month D, YYYY through Month D, YYYY" form, then the first two generic
// dates.
func (p *Chase) extractPeriod(page *document.ProcessedPage, result *statement.ProcessedStatementData) {
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
