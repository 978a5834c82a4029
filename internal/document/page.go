// Package document loads OCR output for a source file and exposes a
// normalized per-page model: ordered text blocks with bounding boxes and
// lightweight table descriptors. One Loader owns the raw Document AI result
// and its page cache for the duration of a single parse session.
package document

import (
	"regexp"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// BoundingBox is a normalized (0..1) rectangle locating a text unit on a page
// image.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 { return (b.Y1 + b.Y2) / 2 }

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 { return (b.X1 + b.X2) / 2 }

// TextBlock is one OCR paragraph (or token when paragraphs are absent) with
// its position. Immutable once built.
type TextBlock struct {
	Text        string      `json:"text"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// ProcessedTable is a coarse descriptor of an OCR-detected table: header cell
// text and a body row count. It deliberately does not carry reconstructed
// cell contents; the geometric reconstructor re-derives those from raw text
// block positions, which are more reliable than the detector's internal cell
// geometry for multi-column financial tables.
type ProcessedTable struct {
	TableIndex  int      `json:"table_index"`
	HeaderCells []string `json:"header_cells"`
	RowCount    int      `json:"row_count"`
}

// ProcessedPage is the normalized model for one page. Owned by the Loader's
// page cache; lifetime is bound to one document-processing session.
type ProcessedPage struct {
	PageNumber int              `json:"page_number"`
	TextBlocks []TextBlock      `json:"text_blocks"`
	Tables     []ProcessedTable `json:"tables"`
	FullText   string           `json:"full_text"`

	// extracted memoizes template-extraction results by template ID so that
	// parser steps requesting the same template do not recompute it.
	extracted map[string]any
}

// CachedExtraction returns a memoized template result for this page.
func (p *ProcessedPage) CachedExtraction(templateID string) (any, bool) {
	v, ok := p.extracted[templateID]
	return v, ok
}

// StoreExtraction memoizes a template result for this page.
func (p *ProcessedPage) StoreExtraction(templateID string, result any) {
	if p.extracted == nil {
		p.extracted = make(map[string]any)
	}
	p.extracted[templateID] = result
}

// FirstBlockMatching returns the first text block whose text contains the
// phrase, case-insensitively.
func (p *ProcessedPage) FirstBlockMatching(phrase string) (TextBlock, bool) {
	needle := strings.ToLower(phrase)
	for _, block := range p.TextBlocks {
		if strings.Contains(strings.ToLower(block.Text), needle) {
			return block, true
		}
	}
	return TextBlock{}, false
}

// MatchesPattern reports whether any text block on the page matches re.
func (p *ProcessedPage) MatchesPattern(re *regexp.Regexp) bool {
	for _, block := range p.TextBlocks {
		if re.MatchString(block.Text) {
			return true
		}
	}
	return false
}

// buildPage converts a raw Document AI page into the normalized model.
// Paragraph-level units are preferred over tokens because they carry more
// coherent semantic spans; tokens are the fallback when no paragraphs exist.
func buildPage(doc *documentaipb.Document, page *documentaipb.Document_Page, pageNumber int) *ProcessedPage {
	var blocks []TextBlock

	if paragraphs := page.GetParagraphs(); len(paragraphs) > 0 {
		blocks = make([]TextBlock, 0, len(paragraphs))
		for _, para := range paragraphs {
			if block, ok := blockFromLayout(doc, para.GetLayout()); ok {
				blocks = append(blocks, block)
			}
		}
	} else {
		tokens := page.GetTokens()
		blocks = make([]TextBlock, 0, len(tokens))
		for _, token := range tokens {
			if block, ok := blockFromLayout(doc, token.GetLayout()); ok {
				blocks = append(blocks, block)
			}
		}
	}

	tables := make([]ProcessedTable, 0, len(page.GetTables()))
	for i, table := range page.GetTables() {
		tables = append(tables, ProcessedTable{
			TableIndex:  i,
			HeaderCells: headerCells(doc, table),
			RowCount:    len(table.GetBodyRows()),
		})
	}

	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}

	return &ProcessedPage{
		PageNumber: pageNumber,
		TextBlocks: blocks,
		Tables:     tables,
		FullText:   strings.Join(texts, "\n"),
	}
}

// blockFromLayout builds a TextBlock from a layout's text anchor and bounding
// polygon. Layouts without text content are dropped.
func blockFromLayout(doc *documentaipb.Document, layout *documentaipb.Document_Page_Layout) (TextBlock, bool) {
	text := anchoredText(doc, layout)
	if strings.TrimSpace(text) == "" {
		return TextBlock{}, false
	}
	return TextBlock{
		Text:        strings.TrimSpace(text),
		BoundingBox: boxFromPoly(layout.GetBoundingPoly()),
	}, true
}

// anchoredText reconstructs a layout's text from its byte-offset segments
// into the document-level text. Segments are concatenated in order; a unit
// can address multiple discontiguous spans.
func anchoredText(doc *documentaipb.Document, layout *documentaipb.Document_Page_Layout) string {
	anchor := layout.GetTextAnchor()
	if anchor == nil {
		return ""
	}
	full := doc.GetText()

	var sb strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start, end := int(seg.GetStartIndex()), int(seg.GetEndIndex())
		if start < 0 || end > len(full) || start >= end {
			continue
		}
		sb.WriteString(full[start:end])
	}
	return sb.String()
}

// boxFromPoly derives the min/max rectangle of a bounding polygon's
// normalized vertices.
func boxFromPoly(poly *documentaipb.BoundingPoly) BoundingBox {
	vertices := poly.GetNormalizedVertices()
	if len(vertices) == 0 {
		return BoundingBox{}
	}

	box := BoundingBox{
		X1: float64(vertices[0].GetX()), Y1: float64(vertices[0].GetY()),
		X2: float64(vertices[0].GetX()), Y2: float64(vertices[0].GetY()),
	}
	for _, v := range vertices[1:] {
		x, y := float64(v.GetX()), float64(v.GetY())
		if x < box.X1 {
			box.X1 = x
		}
		if x > box.X2 {
			box.X2 = x
		}
		if y < box.Y1 {
			box.Y1 = y
		}
		if y > box.Y2 {
			box.Y2 = y
		}
	}
	return box
}

func headerCells(doc *documentaipb.Document, table *documentaipb.Document_Page_Table) []string {
	var cells []string
	for _, row := range table.GetHeaderRows() {
		for _, cell := range row.GetCells() {
			text := strings.TrimSpace(anchoredText(doc, cell.GetLayout()))
			if text != "" {
				cells = append(cells, text)
			}
		}
	}
	return cells
}
