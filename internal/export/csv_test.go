package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ocr/internal/statement"
	"github.com/FACorreiaa/statement-ocr/internal/statement/repository"
)

func TestWriteTransactions(t *testing.T) {
	acct := statement.NewAccount("1234", "savings", 1)
	acct.Transactions.Deposits = []statement.Transaction{
		{Date: "01/05/24", Description: "Payroll deposit", Amount: decimal.NewFromInt(500), Type: statement.TransactionDeposit},
	}
	acct.Transactions.Withdrawals = []statement.Transaction{
		{Date: "01/10/24", Description: "Grocery store", Amount: decimal.RequireFromString("-45.5"), Type: statement.TransactionWithdrawal},
	}
	data := &statement.ProcessedStatementData{
		BankName: "Bank of America",
		Accounts: []*statement.Account{acct},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, data))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "account_last4,account_type,date,description,amount,type", lines[0])
	assert.Equal(t, "1234,savings,01/05/24,Payroll deposit,500.00,DEPOSIT", lines[1])
	assert.Equal(t, "1234,savings,01/10/24,Grocery store,-45.50,WITHDRAWAL", lines[2])
}

func TestWriteTransactions_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, statement.NewProcessedStatementData("")))

	// Header only.
	assert.Equal(t, "account_last4,account_type,date,description,amount,type",
		strings.TrimSpace(buf.String()))
}

func TestWriteTransactionRecords(t *testing.T) {
	records := []repository.TransactionRecord{
		{AccountLast4: "1234", Date: "01/05/24", Description: "Payroll deposit",
			Amount: decimal.NewFromInt(500), Type: "DEPOSIT"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactionRecords(&buf, records))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1234,,01/05/24,Payroll deposit,500.00,DEPOSIT", lines[1])
}
