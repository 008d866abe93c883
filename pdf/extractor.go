// Package pdf reads page-rendered spreadsheet exports with rsc.io/pdf and
// feeds their geometry to linkdex.ExtractRows.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fwojciec/linkdex"
	"rsc.io/pdf"
)

// runGapFactor is the largest horizontal gap, relative to the font size,
// between two glyphs of the same run. Word spaces are wider than this.
const runGapFactor = 0.15

// Ensure Extractor implements linkdex.Extractor at compile time.
var _ linkdex.Extractor = (*Extractor)(nil)

// Extractor reconstructs catalog rows from a PDF document.
type Extractor struct {
	opts linkdex.ExtractOptions
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBindTolerance sets the maximum distance between a link and the line
// it belongs to.
func WithBindTolerance(d float64) Option {
	return func(e *Extractor) {
		e.opts.BindTolerance = d
	}
}

// WithMarker sets the marker word stripped from the start of titles.
func WithMarker(marker string) Option {
	return func(e *Extractor) {
		e.opts.Marker = marker
	}
}

// WithLocation sets the time zone of the embedded "Last update" stamp.
func WithLocation(loc *time.Location) Option {
	return func(e *Extractor) {
		e.opts.Location = loc
	}
}

// NewExtractor creates a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses data as a PDF and returns the rows it contains.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*linkdex.Extraction, error) {
	doc, skipped, err := ReadDocument(ctx, data)
	if err != nil {
		return nil, err
	}

	ext, err := linkdex.ExtractRows(ctx, doc, e.opts)
	if err != nil {
		return nil, err
	}
	ext.Skipped = append(skipped, ext.Skipped...)
	return ext, nil
}

// ReadDocument loads the text runs and link annotations of every page.
// Pages that cannot be decoded are left empty and reported as EPARSE errors
// in the returned slice; a document that cannot be opened at all returns
// an EPARSE error.
func ReadDocument(ctx context.Context, data []byte) (doc *linkdex.Document, skipped []error, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, skipped, err = nil, nil, linkdex.Errorf(linkdex.EPARSE, "unreadable PDF: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, linkdex.WrapError(linkdex.EPARSE, err, "unreadable PDF")
	}

	n := r.NumPage()
	doc = &linkdex.Document{Pages: make([]linkdex.Page, 0, n)}
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		page, pageSkipped, err := readPage(r.Page(i), i)
		if err != nil {
			skipped = append(skipped, err)
		}
		skipped = append(skipped, pageSkipped...)
		doc.Pages = append(doc.Pages, page)
	}
	return doc, skipped, nil
}

// readPage decodes one page. The reader panics on malformed content
// streams, which is turned into an error for this page only.
func readPage(p pdf.Page, num int) (page linkdex.Page, skipped []error, err error) {
	defer func() {
		if r := recover(); r != nil {
			page, skipped = linkdex.Page{}, nil
			err = linkdex.Errorf(linkdex.EPARSE, "page %d: unreadable content: %v", num, r)
		}
	}()

	if p.V.IsNull() {
		return linkdex.Page{}, nil, linkdex.Errorf(linkdex.EPARSE, "page %d: missing", num)
	}

	page.Runs = coalesce(p.Content().Text)
	page.Annotations, skipped = annotations(p.V.Key("Annots"), num)
	return page, skipped, nil
}

// coalesce merges consecutive glyphs into text runs. Glyphs join the
// current run while they stay on its rounded baseline and start no
// further than runGapFactor×FontSize past the end of the previous glyph.
func coalesce(glyphs []pdf.Text) []linkdex.TextRun {
	var runs []linkdex.TextRun
	var text strings.Builder
	var cur linkdex.TextRun
	var prev pdf.Text
	open := false

	flush := func() {
		if open {
			cur.Text = text.String()
			if strings.TrimSpace(cur.Text) != "" {
				runs = append(runs, cur)
			}
		}
		text.Reset()
		open = false
	}

	for _, g := range glyphs {
		if open {
			gap := g.X - (prev.X + prev.W)
			sameLine := math.Round(g.Y) == math.Round(prev.Y)
			if !sameLine || g.X < prev.X || gap > runGapFactor*g.FontSize {
				flush()
			}
		}
		if !open {
			cur = linkdex.TextRun{X: g.X, Y: g.Y}
			open = true
		}
		text.WriteString(g.S)
		prev = g
	}
	flush()
	return runs
}

// annotations reads the URI link annotations of a page.
func annotations(annots pdf.Value, page int) ([]linkdex.Annotation, []error) {
	var out []linkdex.Annotation
	var skipped []error

	for i := 0; i < annots.Len(); i++ {
		a := annots.Index(i)
		if a.Key("Subtype").Name() != "Link" {
			continue
		}
		uri := a.Key("A").Key("URI")
		if uri.Kind() != pdf.String {
			continue
		}
		url := uri.RawString()

		rect, err := readRect(a.Key("Rect"))
		if err != nil {
			skipped = append(skipped, linkdex.WrapError(linkdex.EPARSE, err, "page %d: link %q", page, url))
			continue
		}
		out = append(out, linkdex.Annotation{URL: url, Rect: rect})
	}
	return out, skipped
}

func readRect(v pdf.Value) (linkdex.Rect, error) {
	if v.Kind() != pdf.Array || v.Len() != 4 {
		return linkdex.Rect{}, fmt.Errorf("malformed rectangle %v", v)
	}
	var n [4]float64
	for i := range n {
		c := v.Index(i)
		if c.Kind() != pdf.Integer && c.Kind() != pdf.Real {
			return linkdex.Rect{}, fmt.Errorf("malformed rectangle %v", v)
		}
		n[i] = c.Float64()
	}
	return linkdex.Rect{X1: n[0], Y1: n[1], X2: n[2], Y2: n[3]}, nil
}
