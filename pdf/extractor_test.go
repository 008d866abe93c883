package pdf_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/linkdex"
	"github.com/fwojciec/linkdex/pdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureLine is a line of words drawn at y points from the top of the
// page, optionally covered by a link annotation.
type fixtureLine struct {
	text string
	link string
	y    float64
}

// buildPDF renders pages the way a spreadsheet export does: one text
// object per word and a link rectangle over each linked row.
func buildPDF(t *testing.T, pages ...[]fixtureLine) []byte {
	t.Helper()

	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetCompression(false)
	doc.SetFont("Helvetica", "", 12)

	for _, lines := range pages {
		doc.AddPage()
		for _, ln := range lines {
			x := 40.0
			for _, word := range strings.Fields(ln.text) {
				doc.Text(x, ln.y, word)
				x += doc.GetStringWidth(word) + doc.GetStringWidth(" ")
			}
			if ln.link != "" {
				doc.LinkString(40, ln.y-12, x-40, 12, ln.link)
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func TestExtractor_Extract(t *testing.T) {
	t.Parallel()

	t.Run("extracts linked rows in reading order with the update stamp", func(t *testing.T) {
		t.Parallel()

		data := buildPDF(t, []fixtureLine{
			{text: "Last update: 14/10/2026 09:30", y: 40},
			{text: "MEGA Apple Pie", link: "https://www.google.com/url?q=https://mega.nz/folder/A1%23k&sa=D", y: 100},
			{text: "Pineapple", link: "https://example.com/pine", y: 120},
			{text: "Orphan row", y: 160},
		})

		ext, err := pdf.NewExtractor().Extract(context.Background(), data)

		require.NoError(t, err)
		assert.Equal(t, []linkdex.Row{
			{Title: "Apple Pie", Link: "https://www.google.com/url?q=https://mega.nz/folder/A1%23k&sa=D"},
			{Title: "Pineapple", Link: "https://example.com/pine"},
		}, ext.Rows)
		require.NotNil(t, ext.DocumentTimestamp)
		assert.Equal(t, time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC), *ext.DocumentTimestamp)
		assert.Empty(t, ext.Skipped)
	})

	t.Run("keeps page order", func(t *testing.T) {
		t.Parallel()

		data := buildPDF(t,
			[]fixtureLine{{text: "First", link: "https://example.com/1", y: 100}},
			[]fixtureLine{{text: "Second", link: "https://example.com/2", y: 100}},
		)

		ext, err := pdf.NewExtractor().Extract(context.Background(), data)

		require.NoError(t, err)
		require.Len(t, ext.Rows, 2)
		assert.Equal(t, "First", ext.Rows[0].Title)
		assert.Equal(t, "Second", ext.Rows[1].Title)
		assert.Nil(t, ext.DocumentTimestamp)
	})

	t.Run("uses the configured marker and location", func(t *testing.T) {
		t.Parallel()

		data := buildPDF(t, []fixtureLine{
			{text: "Last update: 01/02/2025 10:00", y: 40},
			{text: "DRIVE Folder", link: "https://example.com/f", y: 100},
		})
		loc := time.FixedZone("UTC+1", 60*60)

		ext, err := pdf.NewExtractor(pdf.WithMarker("drive"), pdf.WithLocation(loc)).Extract(context.Background(), data)

		require.NoError(t, err)
		require.Len(t, ext.Rows, 1)
		assert.Equal(t, "Folder", ext.Rows[0].Title)
		assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), ext.DocumentTimestamp.UTC())
	})

	t.Run("blank page yields no rows", func(t *testing.T) {
		t.Parallel()

		ext, err := pdf.NewExtractor().Extract(context.Background(), buildPDF(t, nil))

		require.NoError(t, err)
		assert.Empty(t, ext.Rows)
	})

	t.Run("returns parse error for data that is not a PDF", func(t *testing.T) {
		t.Parallel()

		_, err := pdf.NewExtractor().Extract(context.Background(), []byte("<html>Loading...</html>"))

		require.Error(t, err)
		assert.Equal(t, linkdex.EPARSE, linkdex.ErrorCode(err))
	})

	t.Run("stops on a cancelled context", func(t *testing.T) {
		t.Parallel()

		data := buildPDF(t, []fixtureLine{{text: "Row", link: "https://example.com", y: 100}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := pdf.NewExtractor().Extract(ctx, data)

		assert.ErrorIs(t, err, context.Canceled)
	})
}
