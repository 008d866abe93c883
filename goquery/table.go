// Package goquery extracts catalog rows from the published HTML table
// variant of the spreadsheet export.
package goquery

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/linkdex"
)

// untitled replaces empty title cells.
const untitled = "Untitled"

// Ensure TableExtractor implements linkdex.Extractor at compile time.
var _ linkdex.Extractor = (*TableExtractor)(nil)

// TableExtractor reads rows from the body of an HTML table. A row needs an
// anchor with an href; its title is the text of the second cell.
type TableExtractor struct {
	Marker   string
	Location *time.Location
}

// NewTableExtractor creates a TableExtractor using the default marker and UTC.
func NewTableExtractor() *TableExtractor {
	return &TableExtractor{Marker: linkdex.DefaultMarker, Location: time.UTC}
}

// Extract parses data as HTML and returns the table rows in document order.
func (e *TableExtractor) Extract(ctx context.Context, data []byte) (*linkdex.Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, linkdex.WrapError(linkdex.EPARSE, err, "failed to parse HTML")
	}

	ext := &linkdex.Extraction{
		DocumentTimestamp: linkdex.ParseLastUpdate(collapse(doc.Text()), e.Location),
	}

	var cancelled error
	doc.Find("tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			cancelled = err
			return false
		}

		href, ok := row.Find("a[href]").First().Attr("href")
		if !ok {
			return true
		}
		if strings.TrimSpace(href) == "" {
			ext.Skipped = append(ext.Skipped, linkdex.Errorf(linkdex.EPARSE, "row %d: empty link", i+1))
			return true
		}

		title := untitled
		if cell := row.Find("td").Eq(1); cell.Length() > 0 {
			if text := strings.TrimSpace(cell.Text()); text != "" {
				title = text
			}
		}
		title = linkdex.SanitizeTitle(title, e.Marker)
		if title == "" {
			return true
		}

		ext.Rows = append(ext.Rows, linkdex.Row{Title: title, Link: strings.TrimSpace(href)})
		return true
	})
	if cancelled != nil {
		return nil, cancelled
	}

	return ext, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
