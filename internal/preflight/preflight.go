// Package preflight inspects a PDF locally before committing to an OCR call:
// page count, and whether the file carries an embedded text layer (digital
// export) or is likely a scan.
package preflight

import (
	"errors"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// Report summarizes the local inspection.
type Report struct {
	PageCount    int
	HasTextLayer bool
	// TextDensity is the average extracted characters per sampled page.
	TextDensity int
}

// textDenseMin is the per-page character count above which a document is
// considered a digital export rather than a scan.
const textDenseMin = 200

// sampledPages caps how many pages are read for the density estimate.
const sampledPages = 3

var ErrNoPages = errors.New("preflight: document has no pages")

// Inspect opens the PDF and samples its first pages. Non-PDF or unreadable
// inputs return an error; the caller treats that as "send to OCR anyway".
func Inspect(path string) (*Report, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preflight: open pdf: %w", err)
	}
	defer f.Close()

	pageCount := reader.NumPage()
	if pageCount < 1 {
		return nil, ErrNoPages
	}

	chars := 0
	sampled := 0
	for i := 1; i <= pageCount && i <= sampledPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		chars += len(strings.TrimSpace(text))
		sampled++
	}

	density := 0
	if sampled > 0 {
		density = chars / sampled
	}

	return &Report{
		PageCount:    pageCount,
		HasTextLayer: density >= textDenseMin,
		TextDensity:  density,
	}, nil
}
