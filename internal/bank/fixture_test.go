package bank

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-ocr/internal/document"
)

// fxBlock is one positioned text block on a fixture page.
type fxBlock struct {
	text           string
	x1, y1, x2, y2 float64
}

func fb(text string, x, y float64) fxBlock {
	return fxBlock{text: text, x1: x, y1: y - 0.005, x2: x + 0.15, y2: y + 0.005}
}

// buildDoc assembles a Document AI result from per-page block lists, wiring
// each paragraph's text anchor into the document-level text.
func buildDoc(pages ...[]fxBlock) *documentaipb.Document {
	var sb strings.Builder
	doc := &documentaipb.Document{}

	for _, blocks := range pages {
		page := &documentaipb.Document_Page{}
		for _, b := range blocks {
			start := int64(sb.Len())
			sb.WriteString(b.text)
			end := int64(sb.Len())
			sb.WriteString("\n")

			page.Paragraphs = append(page.Paragraphs, &documentaipb.Document_Page_Paragraph{
				Layout: &documentaipb.Document_Page_Layout{
					TextAnchor: &documentaipb.Document_TextAnchor{
						TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
							{StartIndex: start, EndIndex: end},
						},
					},
					BoundingPoly: &documentaipb.BoundingPoly{
						NormalizedVertices: []*documentaipb.NormalizedVertex{
							{X: float32(b.x1), Y: float32(b.y1)},
							{X: float32(b.x2), Y: float32(b.y2)},
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

// fakeProcessor serves a canned document and counts invocations.
type fakeProcessor struct {
	doc   *documentaipb.Document
	err   error
	calls int
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, _ []byte, _ string) (*documentaipb.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func (f *fakeProcessor) ProcessorID() string { return "test-processor" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// loadDoc returns a loader with the fixture document loaded.
func loadDoc(t *testing.T, doc *documentaipb.Document) *document.Loader {
	t.Helper()

	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, []byte("fixture"), 0o644))

	loader := document.NewLoader(&fakeProcessor{doc: doc}, nil, testLogger())
	require.True(t, loader.Load(context.Background(), path, "application/pdf"))
	return loader
}
