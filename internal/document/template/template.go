// Package template applies reusable regex-based extraction templates against
// a page's text blocks to pull typed candidate values: dates, balances,
// account numbers, section markers. Templates are immutable and shared
// read-only across pages and documents; results are memoized per page.
package template

import (
	"regexp"

	"github.com/FACorreiaa/statement-ocr/internal/document"
)

// Pattern is one extraction rule. Group selects the capture group used as the
// value; zero means the whole match.
type Pattern struct {
	Regex *regexp.Regexp
	Type  string
	Group int
}

// Template is a named, reusable bundle of extraction rules.
type Template struct {
	ID       string
	Patterns []Pattern
}

// Match is one extracted candidate value with the block it came from.
type Match struct {
	Value    string
	Text     string
	Position document.BoundingBox
}

// Result maps a pattern type to every match found for it on a page, in text
// block scan order. No further ordering is guaranteed.
type Result map[string][]Match

// Extract applies every pattern of the template to every text block on the
// page. The result is memoized inside the page keyed by template ID, so
// repeated requests from different parser steps do not recompute.
func Extract(page *document.ProcessedPage, tmpl Template) Result {
	if page == nil {
		return Result{}
	}
	if cached, ok := page.CachedExtraction(tmpl.ID); ok {
		if result, ok := cached.(Result); ok {
			return result
		}
	}

	result := Result{}
	for _, pattern := range tmpl.Patterns {
		for _, block := range page.TextBlocks {
			groups := pattern.Regex.FindStringSubmatch(block.Text)
			if groups == nil {
				continue
			}
			value := groups[0]
			if pattern.Group > 0 && pattern.Group < len(groups) {
				value = groups[pattern.Group]
			}
			result[pattern.Type] = append(result[pattern.Type], Match{
				Value:    value,
				Text:     block.Text,
				Position: block.BoundingBox,
			})
		}
	}

	page.StoreExtraction(tmpl.ID, result)
	return result
}

// Built-in pattern types.
const (
	TypeDate            = "date-mm-dd-yyyy"
	TypeStatementPeriod = "statement-period"
	TypeAccountLast4    = "account-last4"
	TypeBalance         = "balance"
)

// Dates extracts explicit "Month D, YYYY to Month D, YYYY" statement periods
// and generic mm/dd/yyyy dates.
var Dates = Template{
	ID: "dates",
	Patterns: []Pattern{
		{
			Regex: regexp.MustCompile(`(?i)((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\s+(?:to|through|-)\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4})`),
			Type:  TypeStatementPeriod,
			Group: 1,
		},
		{
			Regex: regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`),
			Type:  TypeDate,
			Group: 1,
		},
	},
}

// AccountNumbers extracts masked account numbers, keeping the last four
// digits.
var AccountNumbers = Template{
	ID: "account-numbers",
	Patterns: []Pattern{
		{
			Regex: regexp.MustCompile(`(?i)account\s*(?:number|#|no\.?)?\s*:?\s*[x*•]+\s?-?(\d{4})\b`),
			Type:  TypeAccountLast4,
			Group: 1,
		},
		{
			Regex: regexp.MustCompile(`\b(?:\d{4}[\s-]){2,}(\d{4})\b`),
			Type:  TypeAccountLast4,
			Group: 1,
		},
	},
}

// Balances extracts currency-shaped values attached to balance labels.
var Balances = Template{
	ID: "balances",
	Patterns: []Pattern{
		{
			Regex: regexp.MustCompile(`(?i)(?:beginning|ending|current|new)\s+balance[^$\d-]*(-?\$?[\d,]+\.\d{2})`),
			Type:  TypeBalance,
			Group: 1,
		},
	},
}
