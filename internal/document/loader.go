package document

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/FACorreiaa/statement-ocr/internal/docai"
)

// Loader obtains page-level OCR output for one source file, memoizing the
// raw result by content hash on disk and processed pages in memory. A Loader
// is scoped to a single parse session and is not safe for concurrent use;
// each session owns its page cache exclusively.
type Loader struct {
	ocr    docai.Processor
	cache  *docai.ResultCache
	logger *slog.Logger

	doc   *documentaipb.Document
	pages map[int]*ProcessedPage

	// CacheHit reports whether the last Load was served from disk.
	CacheHit bool
}

// NewLoader wires a loader to the OCR processor and result cache. Either may
// be nil, in which case Load reports failure cleanly instead of crashing.
func NewLoader(ocr docai.Processor, cache *docai.ResultCache, logger *slog.Logger) *Loader {
	return &Loader{
		ocr:    ocr,
		cache:  cache,
		logger: logger,
		pages:  make(map[int]*ProcessedPage),
	}
}

// Load reads the source file, consults the on-disk cache keyed by
// (content hash, processor ID), and on a miss invokes the external OCR
// service once for the whole document. All failure modes — unreadable source,
// unconfigured or unreachable service, empty result — return false rather
// than an error; the caller is expected to degrade to a minimal result.
func (l *Loader) Load(ctx context.Context, sourcePath, mimeType string) bool {
	l.doc = nil
	l.pages = make(map[int]*ProcessedPage)
	l.CacheHit = false

	if l.ocr == nil {
		l.logger.Error("document loader has no OCR processor configured")
		return false
	}

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		l.logger.Error("failed to read source document", "path", sourcePath, "error", err)
		return false
	}

	hash := docai.ContentHash(content)
	processorID := l.ocr.ProcessorID()

	if l.cache != nil {
		if doc, ok := l.cache.Get(hash, processorID); ok {
			l.logger.Info("OCR result served from disk cache", "hash", hash[:12])
			l.doc = doc
			l.CacheHit = true
			return true
		}
	}

	doc, err := l.ocr.ProcessDocument(ctx, content, mimeType)
	if err != nil {
		l.logger.Error("OCR processing failed", "error", err)
		return false
	}

	l.doc = doc
	if l.cache != nil {
		if err := l.cache.Put(hash, processorID, doc); err != nil {
			// Cache write failure is non-fatal; the in-memory result stands.
			l.logger.Warn("failed to persist OCR result to cache", "error", err)
		}
	}
	return true
}

// PageCount returns the number of pages in the loaded document, zero when
// nothing is loaded.
func (l *Loader) PageCount() int {
	if l.doc == nil {
		return 0
	}
	return len(l.doc.GetPages())
}

// FullText returns the document-level OCR text.
func (l *Loader) FullText() string {
	if l.doc == nil {
		return ""
	}
	return l.doc.GetText()
}

// ProcessPage returns the normalized model for page n (1-based). Out-of-range
// requests log and return nil. Pages are built once and cached for the
// session; callers borrow the returned page and must not retain it past the
// session.
func (l *Loader) ProcessPage(n int) *ProcessedPage {
	if l.doc == nil {
		return nil
	}
	if n < 1 || n > len(l.doc.GetPages()) {
		l.logger.Warn("page out of range", "page", n, "page_count", len(l.doc.GetPages()))
		return nil
	}
	if page, ok := l.pages[n]; ok {
		return page
	}

	page := buildPage(l.doc, l.doc.GetPages()[n-1], n)
	l.pages[n] = page
	return page
}

// ProcessPageRange processes pages start..end inclusive, in order. Pages that
// fail to process are skipped, not retried.
func (l *Loader) ProcessPageRange(start, end int) []*ProcessedPage {
	var pages []*ProcessedPage
	for n := start; n <= end; n++ {
		if page := l.ProcessPage(n); page != nil {
			pages = append(pages, page)
		}
	}
	return pages
}

// FindFirstPageMatching scans pages in ascending order, forcing processing of
// unprocessed ones, and returns the first page number with any text block
// matching re. The second return is false when no page matches.
func (l *Loader) FindFirstPageMatching(re *regexp.Regexp) (int, bool) {
	for n := 1; n <= l.PageCount(); n++ {
		page := l.ProcessPage(n)
		if page == nil {
			continue
		}
		if page.MatchesPattern(re) {
			return n, true
		}
	}
	return 0, false
}

// FindTables filters page n's table descriptors to those whose header cells
// collectively contain every required header term (case-insensitive
// substring).
func (l *Loader) FindTables(n int, requiredHeaders []string) []ProcessedTable {
	page := l.ProcessPage(n)
	if page == nil {
		return nil
	}

	var out []ProcessedTable
	for _, table := range page.Tables {
		joined := strings.ToLower(strings.Join(table.HeaderCells, " "))
		matched := true
		for _, header := range requiredHeaders {
			if !strings.Contains(joined, strings.ToLower(header)) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, table)
		}
	}
	return out
}
