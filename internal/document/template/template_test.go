package template

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ocr/internal/document"
)

func pageWith(texts ...string) *document.ProcessedPage {
	blocks := make([]document.TextBlock, 0, len(texts))
	for i, text := range texts {
		blocks = append(blocks, document.TextBlock{
			Text:        text,
			BoundingBox: document.BoundingBox{Y1: float64(i) * 0.1, Y2: float64(i)*0.1 + 0.02},
		})
	}
	return &document.ProcessedPage{PageNumber: 1, TextBlocks: blocks}
}

func TestExtract_Dates(t *testing.T) {
	page := pageWith(
		"Statement period January 5, 2024 to February 4, 2024",
		"Posted 01/15/2024 payment",
		"no dates here",
	)

	result := Extract(page, Dates)

	require.Len(t, result[TypeStatementPeriod], 1)
	assert.Equal(t, "January 5, 2024 to February 4, 2024", result[TypeStatementPeriod][0].Value)

	require.Len(t, result[TypeDate], 1)
	assert.Equal(t, "01/15/2024", result[TypeDate][0].Value)
}

func TestExtract_AccountNumbers(t *testing.T) {
	t.Run("masked account number", func(t *testing.T) {
		page := pageWith("Account number: ****1234")
		result := Extract(page, AccountNumbers)
		require.NotEmpty(t, result[TypeAccountLast4])
		assert.Equal(t, "1234", result[TypeAccountLast4][0].Value)
	})

	t.Run("grouped digits", func(t *testing.T) {
		page := pageWith("Account 4480 1234 5678")
		result := Extract(page, AccountNumbers)
		require.NotEmpty(t, result[TypeAccountLast4])
		assert.Equal(t, "5678", result[TypeAccountLast4][0].Value)
	})

	t.Run("no match on plain text", func(t *testing.T) {
		page := pageWith("nothing to see")
		result := Extract(page, AccountNumbers)
		assert.Empty(t, result[TypeAccountLast4])
	})
}

func TestExtract_Balances(t *testing.T) {
	page := pageWith(
		"Beginning balance as of March $1,234.56",
		"Ending balance $2,000.00",
	)

	result := Extract(page, Balances)
	require.Len(t, result[TypeBalance], 2)
	assert.Equal(t, "$1,234.56", result[TypeBalance][0].Value)
	assert.Equal(t, "$2,000.00", result[TypeBalance][1].Value)
}

func TestExtract_Memoization(t *testing.T) {
	page := pageWith("Posted 01/15/2024 payment")

	first := Extract(page, Dates)
	require.Len(t, first[TypeDate], 1)

	// Mutating the page's blocks after the first extraction must not change
	// the memoized result.
	page.TextBlocks = nil
	second := Extract(page, Dates)
	assert.Len(t, second[TypeDate], 1)
}

func TestExtract_NilPage(t *testing.T) {
	result := Extract(nil, Dates)
	assert.Empty(t, result)
}

func TestExtract_GroupSelection(t *testing.T) {
	tmpl := Template{
		ID: "custom",
		Patterns: []Pattern{
			{Regex: regexp.MustCompile(`total:\s+(\d+)`), Type: "total", Group: 1},
			{Regex: regexp.MustCompile(`whole-match-\d+`), Type: "whole"},
		},
	}

	page := pageWith("total: 42", "whole-match-7")
	result := Extract(page, tmpl)

	require.Len(t, result["total"], 1)
	assert.Equal(t, "42", result["total"][0].Value)
	require.Len(t, result["whole"], 1)
	assert.Equal(t, "whole-match-7", result["whole"][0].Value)
}
