// Package statement defines the structured output model of the OCR parsing
// pipeline: a statement's bank identity, its accounts, their balances, and
// categorized transactions. Everything upstream (page cache, templates, table
// reconstruction) is transient working state; this model is the sole artifact
// consumed by the persistence layer.
package statement

import (
	"sort"

	"github.com/shopspring/decimal"
)

// UnknownAccountNumber is the sentinel used when the last four digits of an
// account number could not be extracted. When known, AccountNumberLast4 is
// exactly four digits.
const UnknownAccountNumber = "unknown"

// TransactionType classifies a parsed transaction.
type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionATMDebit   TransactionType = "ATM_DEBIT"
	TransactionOther      TransactionType = "OTHER"
)

// Transaction is a single parsed statement line. Rows whose amount could not
// be parsed never become Transactions; construction sites drop them instead.
// Sign convention: withdrawals and ATM/debit amounts are negative magnitudes,
// deposits positive.
type Transaction struct {
	Date        string          `json:"date,omitempty"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	RawRowText  string          `json:"raw_row_text,omitempty"`
}

// TransactionBuckets groups an account's transactions by statement section.
type TransactionBuckets struct {
	Deposits    []Transaction `json:"deposits"`
	ATMDebit    []Transaction `json:"atm_debit"`
	Withdrawals []Transaction `json:"withdrawals"`
	Checks      []Transaction `json:"checks"`
	Fees        []Transaction `json:"fees"`
	Other       []Transaction `json:"other"`
}

// Len returns the total number of transactions across all buckets.
func (b *TransactionBuckets) Len() int {
	return len(b.Deposits) + len(b.ATMDebit) + len(b.Withdrawals) +
		len(b.Checks) + len(b.Fees) + len(b.Other)
}

// All returns every transaction across all buckets in bucket order.
func (b *TransactionBuckets) All() []Transaction {
	out := make([]Transaction, 0, b.Len())
	out = append(out, b.Deposits...)
	out = append(out, b.ATMDebit...)
	out = append(out, b.Withdrawals...)
	out = append(out, b.Checks...)
	out = append(out, b.Fees...)
	out = append(out, b.Other...)
	return out
}

// AccountMetadata holds summary-table figures for an account. Nil means the
// figure was not found on the statement.
type AccountMetadata struct {
	BeginningBalance  *decimal.Decimal `json:"beginning_balance,omitempty"`
	EndingBalance     *decimal.Decimal `json:"ending_balance,omitempty"`
	DepositsTotal     *decimal.Decimal `json:"deposits_total,omitempty"`
	ATMDebitTotal     *decimal.Decimal `json:"atm_debit_total,omitempty"`
	ChecksTotal       *decimal.Decimal `json:"checks_total,omitempty"`
	ServiceFees       *decimal.Decimal `json:"service_fees,omitempty"`
	OtherSubtractions *decimal.Decimal `json:"other_subtractions,omitempty"`
}

// Account is the per-account unit of pipeline output. Created during page
// processing and mutated incrementally as summary and transaction tables are
// found across the account's page range.
type Account struct {
	AccountNumberLast4 string             `json:"account_number_last4"`
	AccountType        string             `json:"account_type,omitempty"`
	PageReference      int                `json:"page_reference,omitempty"`
	Transactions       TransactionBuckets `json:"all_transactions"`
	Metadata           AccountMetadata    `json:"metadata"`
}

// NewAccount returns an account stub with the unknown-number sentinel applied
// when last4 is empty.
func NewAccount(last4, accountType string, pageRef int) *Account {
	if last4 == "" {
		last4 = UnknownAccountNumber
	}
	return &Account{
		AccountNumberLast4: last4,
		AccountType:        accountType,
		PageReference:      pageRef,
	}
}

// ProcessedStatementData is the pipeline's sole externally consumed artifact.
type ProcessedStatementData struct {
	BankName                 string           `json:"bank_name,omitempty"`
	Accounts                 []*Account       `json:"accounts"`
	StatementPeriodStartDate string           `json:"statement_period_start_date,omitempty"`
	StatementPeriodEndDate   string           `json:"statement_period_end_date,omitempty"`
	RawText                  string           `json:"raw_text,omitempty"`
	TotalBalance             *decimal.Decimal `json:"total_balance,omitempty"`
}

// NewProcessedStatementData returns the base (floor) result: bank name only,
// no accounts, no period. Parsers degrade to this on internal failure.
func NewProcessedStatementData(bankName string) *ProcessedStatementData {
	return &ProcessedStatementData{
		BankName: bankName,
		Accounts: []*Account{},
	}
}

// SumEndingBalances fills TotalBalance with the sum of all known account
// ending balances. Leaves TotalBalance nil when no account has one.
func (d *ProcessedStatementData) SumEndingBalances() {
	var total decimal.Decimal
	found := false
	for _, acct := range d.Accounts {
		if acct.Metadata.EndingBalance != nil {
			total = total.Add(*acct.Metadata.EndingBalance)
			found = true
		}
	}
	if found {
		d.TotalBalance = &total
	}
}

// PageRange is an inclusive span of pages belonging to one account.
type PageRange struct {
	Account *Account
	Start   int
	End     int
}

// PageRanges partitions the document's pages among accounts by their page
// references. Accounts are sorted by PageReference; each account's range runs
// from its reference to one page before the next account's reference, with the
// last account taking the remaining tail through pageCount. The returned
// ranges are contiguous and non-overlapping.
func PageRanges(accounts []*Account, pageCount int) []PageRange {
	sorted := make([]*Account, 0, len(accounts))
	for _, a := range accounts {
		if a.PageReference >= 1 && a.PageReference <= pageCount {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PageReference < sorted[j].PageReference
	})

	ranges := make([]PageRange, 0, len(sorted))
	for i, a := range sorted {
		end := pageCount
		if i+1 < len(sorted) {
			end = sorted[i+1].PageReference - 1
		}
		ranges = append(ranges, PageRange{Account: a, Start: a.PageReference, End: end})
	}
	return ranges
}
