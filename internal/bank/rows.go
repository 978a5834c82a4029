package bank

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
)

var (
	dateShapedRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}(?:/\d{2,4})?$`)
	currencyRe   = regexp.MustCompile(`-?\(?\$?\s?\d{1,3}(?:,\d{3})*\.\d{2}\)?`)
	pageRefRe    = regexp.MustCompile(`(?i)\bpage\s+(\d+)\b`)
	last4Re      = regexp.MustCompile(`(?:[xX*•]{2,}|\d{4}[\s-]\d{4}[\s-])[\s-]?(\d{4})\b`)
)

// parseCurrency extracts the last currency-shaped value from s. Parenthesized
// and minus-prefixed values parse as negative.
func parseCurrency(s string) (decimal.Decimal, bool) {
	matches := currencyRe.FindAllString(s, -1)
	if len(matches) == 0 {
		return decimal.Zero, false
	}
	raw := matches[len(matches)-1]

	negative := strings.HasPrefix(raw, "-") || strings.HasPrefix(raw, "(")
	cleaned := strings.NewReplacer("$", "", ",", "", "(", "", ")", "", "-", "", " ", "").Replace(raw)

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		value = value.Neg()
	}
	return value, true
}

// rowToTransaction converts a reconstructed row into a Transaction by column
// inference: a date-shaped first cell, a currency-shaped last cell, and the
// remaining cells joined as the description. Rows without a parseable amount
// yield no transaction — they are dropped, never persisted. Withdrawal and
// ATM/debit amounts are stored as negative magnitudes.
func rowToTransaction(cells []string, txType statement.TransactionType) (statement.Transaction, bool) {
	if len(cells) == 0 {
		return statement.Transaction{}, false
	}

	raw := strings.Join(cells, " ")

	amount, ok := parseCurrency(cells[len(cells)-1])
	if !ok {
		return statement.Transaction{}, false
	}
	rest := cells[:len(cells)-1]

	date := ""
	if len(rest) > 0 && dateShapedRe.MatchString(strings.TrimSpace(rest[0])) {
		date = strings.TrimSpace(rest[0])
		rest = rest[1:]
	}

	description := strings.TrimSpace(strings.Join(rest, " "))

	switch txType {
	case statement.TransactionWithdrawal, statement.TransactionATMDebit:
		if amount.IsPositive() {
			amount = amount.Neg()
		}
	case statement.TransactionDeposit:
		if amount.IsNegative() {
			amount = amount.Neg()
		}
	}

	return statement.Transaction{
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        txType,
		RawRowText:  raw,
	}, true
}

// findLast4 pulls the last four digits of a masked or grouped account number
// out of arbitrary text.
func findLast4(text string) string {
	if m := last4Re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// findPageReference extracts a "page N" reference from text, zero when absent.
func findPageReference(text string) int {
	m := pageRefRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n := 0
	for _, c := range m[1] {
		n = n*10 + int(c-'0')
	}
	return n
}
