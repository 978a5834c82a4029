package document

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ocr/internal/docai"
)

type stubProcessor struct {
	doc   *documentaipb.Document
	err   error
	calls int
}

func (s *stubProcessor) ProcessDocument(_ context.Context, _ []byte, _ string) (*documentaipb.Document, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.doc, nil
}

func (s *stubProcessor) ProcessorID() string { return "stub-processor" }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// docWithPages builds a document whose pages each hold one paragraph per
// given text, stacked top to bottom.
func docWithPages(pageTexts ...[]string) *documentaipb.Document {
	var sb strings.Builder
	doc := &documentaipb.Document{}

	for _, texts := range pageTexts {
		page := &documentaipb.Document_Page{}
		for i, text := range texts {
			start := int64(sb.Len())
			sb.WriteString(text)
			end := int64(sb.Len())
			sb.WriteString("\n")

			y := float32(i) * 0.1
			page.Paragraphs = append(page.Paragraphs, &documentaipb.Document_Page_Paragraph{
				Layout: &documentaipb.Document_Page_Layout{
					TextAnchor: &documentaipb.Document_TextAnchor{
						TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
							{StartIndex: start, EndIndex: end},
						},
					},
					BoundingPoly: &documentaipb.BoundingPoly{
						NormalizedVertices: []*documentaipb.NormalizedVertex{
							{X: 0.1, Y: y},
							{X: 0.9, Y: y + 0.02},
						},
					},
				},
			})
		}
		doc.Pages = append(doc.Pages, page)
	}

	doc.Text = sb.String()
	return doc
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_Load(t *testing.T) {
	doc := docWithPages([]string{"hello", "world"})

	t.Run("success", func(t *testing.T) {
		proc := &stubProcessor{doc: doc}
		loader := NewLoader(proc, nil, quietLogger())

		ok := loader.Load(context.Background(), writeSource(t, "content"), "application/pdf")
		require.True(t, ok)
		assert.Equal(t, 1, loader.PageCount())
		assert.False(t, loader.CacheHit)
		assert.Contains(t, loader.FullText(), "hello")
	})

	t.Run("processor failure reports false", func(t *testing.T) {
		proc := &stubProcessor{err: errors.New("service unavailable")}
		loader := NewLoader(proc, nil, quietLogger())

		ok := loader.Load(context.Background(), writeSource(t, "content"), "application/pdf")
		assert.False(t, ok)
		assert.Zero(t, loader.PageCount())
	})

	t.Run("missing source reports false", func(t *testing.T) {
		proc := &stubProcessor{doc: doc}
		loader := NewLoader(proc, nil, quietLogger())

		ok := loader.Load(context.Background(), "/does/not/exist.pdf", "application/pdf")
		assert.False(t, ok)
		assert.Zero(t, proc.calls)
	})

	t.Run("nil processor reports false", func(t *testing.T) {
		loader := NewLoader(nil, nil, quietLogger())
		ok := loader.Load(context.Background(), writeSource(t, "content"), "application/pdf")
		assert.False(t, ok)
	})
}

func TestLoader_CacheIdempotence(t *testing.T) {
	doc := docWithPages([]string{"cached page"})
	proc := &stubProcessor{doc: doc}
	cache, err := docai.NewResultCache(t.TempDir(), quietLogger())
	require.NoError(t, err)

	path := writeSource(t, "identical bytes")

	first := NewLoader(proc, cache, quietLogger())
	require.True(t, first.Load(context.Background(), path, "application/pdf"))
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, proc.calls)

	// Same content, fresh session: served from disk, no second service call.
	second := NewLoader(proc, cache, quietLogger())
	require.True(t, second.Load(context.Background(), path, "application/pdf"))
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, proc.calls)
	assert.Equal(t, first.FullText(), second.FullText())
}

func TestLoader_ProcessPage(t *testing.T) {
	doc := docWithPages(
		[]string{"page one text"},
		[]string{"page two text"},
	)
	loader := NewLoader(&stubProcessor{doc: doc}, nil, quietLogger())
	require.True(t, loader.Load(context.Background(), writeSource(t, "x"), "application/pdf"))

	t.Run("pages are one-based", func(t *testing.T) {
		page := loader.ProcessPage(1)
		require.NotNil(t, page)
		assert.Equal(t, 1, page.PageNumber)
		assert.Contains(t, page.FullText, "page one text")
	})

	t.Run("memoizes page models", func(t *testing.T) {
		assert.Same(t, loader.ProcessPage(2), loader.ProcessPage(2))
	})

	t.Run("out of range is nil", func(t *testing.T) {
		assert.Nil(t, loader.ProcessPage(0))
		assert.Nil(t, loader.ProcessPage(3))
	})

	t.Run("range skips failures", func(t *testing.T) {
		pages := loader.ProcessPageRange(1, 2)
		assert.Len(t, pages, 2)
	})
}

func TestLoader_FindFirstPageMatching(t *testing.T) {
	doc := docWithPages(
		[]string{"introduction"},
		[]string{"Account number: ****1234"},
		[]string{"Account number: ****5678"},
	)
	loader := NewLoader(&stubProcessor{doc: doc}, nil, quietLogger())
	require.True(t, loader.Load(context.Background(), writeSource(t, "x"), "application/pdf"))

	re := regexp.MustCompile(`\*{4}\d{4}`)
	n, found := loader.FindFirstPageMatching(re)
	require.True(t, found)
	assert.Equal(t, 2, n)

	_, found = loader.FindFirstPageMatching(regexp.MustCompile(`not present`))
	assert.False(t, found)
}

func TestLoader_FindTables(t *testing.T) {
	doc := docWithPages([]string{"some text"})
	// Attach a table descriptor with header cells to the first page.
	headerText := "Account Number Balance Page"
	start := int64(len(doc.Text))
	doc.Text += headerText
	doc.Pages[0].Tables = []*documentaipb.Document_Page_Table{
		{
			HeaderRows: []*documentaipb.Document_Page_Table_TableRow{
				{
					Cells: []*documentaipb.Document_Page_Table_TableCell{
						{
							Layout: &documentaipb.Document_Page_Layout{
								TextAnchor: &documentaipb.Document_TextAnchor{
									TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
										{StartIndex: start, EndIndex: start + int64(len(headerText))},
									},
								},
							},
						},
					},
				},
			},
			BodyRows: []*documentaipb.Document_Page_Table_TableRow{{}, {}},
		},
	}

	loader := NewLoader(&stubProcessor{doc: doc}, nil, quietLogger())
	require.True(t, loader.Load(context.Background(), writeSource(t, "x"), "application/pdf"))

	t.Run("all required headers present", func(t *testing.T) {
		tables := loader.FindTables(1, []string{"account", "balance"})
		require.Len(t, tables, 1)
		assert.Equal(t, 2, tables[0].RowCount)
	})

	t.Run("missing header filters the table out", func(t *testing.T) {
		assert.Empty(t, loader.FindTables(1, []string{"account", "interest rate"}))
	})
}
