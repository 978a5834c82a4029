// Package tablegeom reconstructs two-dimensional grids of cell values from
// loose text block geometry. The OCR service's own table detector is
// unreliable for multi-column financial tables with variable row heights, so
// structure is re-derived purely from raw block positions, bounded by
// semantic anchor phrases (bank-standardized section delimiters) instead of
// brittle absolute coordinates.
package tablegeom

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/statement-ocr/internal/document"
)

// BoundaryMode controls whether rows exactly at a resolved bound survive
// filtering.
type BoundaryMode int

const (
	// Inclusive keeps rows whose vertical center is at the bound.
	Inclusive BoundaryMode = iota
	// Exclusive keeps only rows strictly inside the bounds.
	Exclusive
)

// Options carries the tuned clustering and filtering parameters. The defaults
// were calibrated against specific bank layouts; they are fields rather than
// constants so fixtures for other layouts can adjust them.
type Options struct {
	// RowGapThreshold is the maximum vertical-center gap, in normalized
	// page-height units, between consecutive blocks of the same row.
	RowGapThreshold float64
	// MinCells drops reconstructed rows with fewer cells as noise.
	MinCells int
	// Mode selects inclusive or exclusive boundary filtering.
	Mode BoundaryMode
	// IncludeAnchors keeps the anchor blocks' own rows inside the bounds.
	// When false, an anchor's far edge becomes the boundary: excluding a top
	// anchor starts below it, excluding a bottom anchor stops above it.
	IncludeAnchors bool
	// HeaderKeywordMinimum is the number of column-header keywords that must
	// appear across a candidate top-anchor row and the row after it for the
	// transaction variant to accept the anchor.
	HeaderKeywordMinimum int
}

// DefaultOptions returns the empirically tuned defaults for generic tables.
func DefaultOptions() Options {
	return Options{
		RowGapThreshold:      0.02,
		MinCells:             2,
		Mode:                 Inclusive,
		IncludeAnchors:       false,
		HeaderKeywordMinimum: 3,
	}
}

// TransactionOptions returns the defaults for transaction tables, which
// tolerate single-cell rows (wrapped descriptions).
func TransactionOptions() Options {
	opts := DefaultOptions()
	opts.MinCells = 1
	return opts
}

// Constraints bounds the vertical region of interest, either by anchor
// phrases resolved against block text or by explicit normalized coordinates.
// Explicit coordinates take precedence over the matching anchor phrase.
type Constraints struct {
	TopAnchor    string
	BottomAnchor string

	TopY       float64
	HasTopY    bool
	BottomY    float64
	HasBottomY bool
}

// Grid is a reconstructed table: an optional header row and the data rows,
// each a left-to-right ordered slice of cell texts.
type Grid struct {
	Headers []string
	Rows    [][]string
}

// AllRows returns the header row (when present) followed by the data rows.
// Key-value scans over summary tables use this, since labels can land in
// either position.
func (g *Grid) AllRows() [][]string {
	if g == nil {
		return nil
	}
	if g.Headers == nil {
		return g.Rows
	}
	out := make([][]string, 0, len(g.Rows)+1)
	out = append(out, g.Headers)
	out = append(out, g.Rows...)
	return out
}

// row is a cluster of blocks sharing a vertical band.
type row struct {
	blocks []document.TextBlock
}

func (r *row) centerY() float64 {
	if len(r.blocks) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range r.blocks {
		sum += b.BoundingBox.CenterY()
	}
	return sum / float64(len(r.blocks))
}

func (r *row) text() string {
	parts := make([]string, 0, len(r.blocks))
	for _, b := range r.blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

func (r *row) contains(phrase string) bool {
	return strings.Contains(strings.ToLower(r.text()), strings.ToLower(phrase))
}

// cells sorts the row's blocks by horizontal center and returns their texts.
func (r *row) cells() []string {
	sorted := make([]document.TextBlock, len(r.blocks))
	copy(sorted, r.blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BoundingBox.CenterX() < sorted[j].BoundingBox.CenterX()
	})
	cells := make([]string, 0, len(sorted))
	for _, b := range sorted {
		cells = append(cells, b.Text)
	}
	return cells
}

// clusterRows sorts blocks by vertical center and groups consecutive blocks
// into rows with a single greedy pass: a gap between centers larger than the
// threshold starts a new row. There is no global optimization and no special
// handling of unpredictably wrapping multi-line cells.
func clusterRows(blocks []document.TextBlock, gapThreshold float64) []*row {
	if len(blocks) == 0 {
		return nil
	}

	sorted := make([]document.TextBlock, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BoundingBox.CenterY() < sorted[j].BoundingBox.CenterY()
	})

	rows := []*row{{blocks: []document.TextBlock{sorted[0]}}}
	prevCenter := sorted[0].BoundingBox.CenterY()
	for _, block := range sorted[1:] {
		center := block.BoundingBox.CenterY()
		if center-prevCenter > gapThreshold {
			rows = append(rows, &row{})
		}
		last := rows[len(rows)-1]
		last.blocks = append(last.blocks, block)
		prevCenter = center
	}
	return rows
}

// resolveAnchor locates the first block containing the phrase and returns the
// boundary coordinate under the far-edge rule: when anchors are excluded, a
// top anchor's bottom edge (start below it) or a bottom anchor's top edge
// (stop above it) becomes the bound.
func resolveAnchor(blocks []document.TextBlock, phrase string, top, includeAnchors bool) (float64, bool) {
	needle := strings.ToLower(phrase)
	for _, block := range blocks {
		if !strings.Contains(strings.ToLower(block.Text), needle) {
			continue
		}
		if top {
			if includeAnchors {
				return block.BoundingBox.Y1, true
			}
			return block.BoundingBox.Y2, true
		}
		if includeAnchors {
			return block.BoundingBox.Y2, true
		}
		return block.BoundingBox.Y1, true
	}
	return 0, false
}

// withinBounds applies the configured boundary mode to a row center.
func withinBounds(center float64, topY, bottomY float64, hasTop, hasBottom bool, mode BoundaryMode) bool {
	if hasTop {
		if mode == Inclusive && center < topY {
			return false
		}
		if mode == Exclusive && center <= topY {
			return false
		}
	}
	if hasBottom {
		if mode == Inclusive && center > bottomY {
			return false
		}
		if mode == Exclusive && center >= bottomY {
			return false
		}
	}
	return true
}

// Reconstruct builds a grid from the page's text blocks bounded by the
// constraints. This generic variant degrades gracefully: an anchor phrase
// that cannot be located simply leaves that side unbounded, retaining all
// other blocks.
func Reconstruct(blocks []document.TextBlock, c Constraints, opts Options) *Grid {
	topY, hasTop := c.TopY, c.HasTopY
	if !hasTop && c.TopAnchor != "" {
		topY, hasTop = resolveAnchor(blocks, c.TopAnchor, true, opts.IncludeAnchors)
	}
	bottomY, hasBottom := c.BottomY, c.HasBottomY
	if !hasBottom && c.BottomAnchor != "" {
		bottomY, hasBottom = resolveAnchor(blocks, c.BottomAnchor, false, opts.IncludeAnchors)
	}

	rows := clusterRows(blocks, opts.RowGapThreshold)
	grid := &Grid{}
	for _, r := range rows {
		if !withinBounds(r.centerY(), topY, bottomY, hasTop, hasBottom, opts.Mode) {
			continue
		}
		cells := r.cells()
		if len(cells) < opts.MinCells {
			continue
		}
		if grid.Headers == nil {
			grid.Headers = cells
			continue
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid
}

// columnHeaderKeywords are the column hints a transaction table's header row
// is expected to carry.
var columnHeaderKeywords = []string{"date", "description", "transaction description", "amount"}

// countHeaderKeywords counts how many distinct column keywords appear in the
// combined text.
func countHeaderKeywords(text string) int {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range columnHeaderKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

// ReconstructTransactions builds a transaction table bounded by a pair of
// anchor phrases. Anchor resolution is strict: if either phrase cannot be
// located the whole operation returns nil — there is no silent degradation.
// A candidate top-anchor row is accepted only when the anchor row combined
// with the row after it carries enough column-header keywords, which
// disambiguates a true section title from the same phrase occurring in
// running text.
func ReconstructTransactions(blocks []document.TextBlock, c Constraints, opts Options) *Grid {
	rows := clusterRows(blocks, opts.RowGapThreshold)

	topIdx := -1
	for i, r := range rows {
		if !r.contains(c.TopAnchor) {
			continue
		}
		combined := r.text()
		if i+1 < len(rows) {
			combined += " " + rows[i+1].text()
		}
		if countHeaderKeywords(combined) >= opts.HeaderKeywordMinimum {
			topIdx = i
			break
		}
	}
	if topIdx < 0 {
		return nil
	}

	bottomIdx := -1
	for i := topIdx + 1; i < len(rows); i++ {
		if rows[i].contains(c.BottomAnchor) {
			bottomIdx = i
			break
		}
	}
	if bottomIdx < 0 {
		return nil
	}

	topBlock, _ := anchorBlock(rows[topIdx], c.TopAnchor)
	bottomBlock, _ := anchorBlock(rows[bottomIdx], c.BottomAnchor)
	topY := topBlock.BoundingBox.Y2
	bottomY := bottomBlock.BoundingBox.Y1
	if opts.IncludeAnchors {
		topY = topBlock.BoundingBox.Y1
		bottomY = bottomBlock.BoundingBox.Y2
	}

	grid := &Grid{}
	for i := topIdx; i <= bottomIdx && i < len(rows); i++ {
		r := rows[i]
		if !withinBounds(r.centerY(), topY, bottomY, true, true, opts.Mode) {
			continue
		}
		cells := r.cells()
		if len(cells) < opts.MinCells {
			continue
		}
		// The verified column-header row becomes the grid header rather than
		// a data row.
		if grid.Headers == nil && countHeaderKeywords(r.text()) >= 1 && len(grid.Rows) == 0 {
			grid.Headers = cells
			continue
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid
}

// anchorBlock returns the block inside the row that carries the anchor
// phrase; falls back to the row's first block.
func anchorBlock(r *row, phrase string) (document.TextBlock, bool) {
	needle := strings.ToLower(phrase)
	for _, b := range r.blocks {
		if strings.Contains(strings.ToLower(b.Text), needle) {
			return b, true
		}
	}
	if len(r.blocks) > 0 {
		return r.blocks[0], false
	}
	return document.TextBlock{}, false
}
