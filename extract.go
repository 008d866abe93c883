package linkdex

import (
	"cmp"
	"context"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
)

// DefaultBindTolerance is the maximum vertical distance, in position units,
// between a link annotation and the baseline it is bound to.
const DefaultBindTolerance = 20.0

// DefaultMarker is the leading marker word stripped from row titles.
const DefaultMarker = "MEGA"

// ExtractOptions tunes ExtractRows. The zero value selects the defaults.
type ExtractOptions struct {
	// BindTolerance defaults to DefaultBindTolerance.
	BindTolerance float64

	// Marker defaults to DefaultMarker.
	Marker string

	// Location is used to interpret the embedded "Last update" stamp.
	// Defaults to UTC.
	Location *time.Location
}

func (o ExtractOptions) withDefaults() ExtractOptions {
	if o.BindTolerance <= 0 {
		o.BindTolerance = DefaultBindTolerance
	}
	if o.Marker == "" {
		o.Marker = DefaultMarker
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// line is a set of text runs sharing a rounded baseline.
type line struct {
	baseline int
	runs     []TextRun
	link     *Annotation
}

// ExtractRows reconstructs table rows from the geometry of doc.
//
// Runs are grouped into lines by rounded baseline, each link annotation is
// bound to the nearest line within opts.BindTolerance, and every line with a
// bound link becomes a row whose title is its runs joined left-to-right.
// Lines without a link are not rows. Only the first page is scanned for the
// "Last update: DD/MM/YYYY HH:MM" stamp.
//
// The context is checked between pages.
func ExtractRows(ctx context.Context, doc *Document, opts ExtractOptions) (*Extraction, error) {
	opts = opts.withDefaults()
	ext := &Extraction{}
	if doc == nil {
		return ext, nil
	}

	for i, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines := groupLines(i, page.Runs, ext)
		if i == 0 {
			for _, ln := range lines {
				if ts := ParseLastUpdate(joinRuns(ln.runs), opts.Location); ts != nil {
					ext.DocumentTimestamp = ts
					break
				}
			}
		}
		bindAnnotations(i, lines, page.Annotations, opts.BindTolerance, ext)

		// PDF user space grows upwards, so top-to-bottom is descending Y.
		slices.SortStableFunc(lines, func(a, b *line) int {
			return cmp.Compare(b.baseline, a.baseline)
		})

		for _, ln := range lines {
			if ln.link == nil {
				continue
			}
			title := SanitizeTitle(joinRuns(ln.runs), opts.Marker)
			if title == "" {
				continue
			}
			link := strings.TrimSpace(ln.link.URL)
			if link == "" {
				ext.Skipped = append(ext.Skipped, Errorf(EPARSE, "page %d: row %q has a blank link", i+1, title))
				continue
			}
			ext.Rows = append(ext.Rows, Row{Title: title, Link: link})
		}
	}

	return ext, nil
}

// groupLines buckets runs by rounded baseline, keeping first-seen line order.
func groupLines(page int, runs []TextRun, ext *Extraction) []*line {
	byBaseline := make(map[int]*line)
	var lines []*line
	for _, r := range runs {
		if !finite(r.X) || !finite(r.Y) {
			ext.Skipped = append(ext.Skipped, Errorf(EPARSE, "page %d: text %q has no usable position", page+1, r.Text))
			continue
		}
		y := int(math.Round(r.Y))
		ln, ok := byBaseline[y]
		if !ok {
			ln = &line{baseline: y}
			byBaseline[y] = ln
			lines = append(lines, ln)
		}
		ln.runs = append(ln.runs, r)
	}
	return lines
}

// bindAnnotations attaches each link to the closest line. On equal distance
// the line seen first wins; a later link bound to the same line replaces an
// earlier one.
func bindAnnotations(page int, lines []*line, annotations []Annotation, tolerance float64, ext *Extraction) {
	if len(lines) == 0 {
		return
	}
	for i := range annotations {
		a := &annotations[i]
		if a.URL == "" {
			continue
		}
		anchor := a.Rect.Anchor()
		if !finite(anchor) {
			ext.Skipped = append(ext.Skipped, Errorf(EPARSE, "page %d: link %q has no usable rectangle", page+1, a.URL))
			continue
		}
		y := math.Round(anchor)

		closest := lines[0]
		for _, ln := range lines[1:] {
			if math.Abs(float64(ln.baseline)-y) < math.Abs(float64(closest.baseline)-y) {
				closest = ln
			}
		}
		if math.Abs(float64(closest.baseline)-y) < tolerance {
			closest.link = a
		}
	}
}

// joinRuns orders runs left-to-right and joins their text with single spaces.
func joinRuns(runs []TextRun) string {
	sorted := slices.Clone(runs)
	slices.SortStableFunc(sorted, func(a, b TextRun) int {
		return cmp.Compare(a.X, b.X)
	})
	parts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		parts = append(parts, r.Text)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// SanitizeTitle collapses whitespace runs, strips a leading "!" and then a
// leading marker word (case-insensitive) followed by whitespace. The marker
// check runs before trimming, so "! MEGA x" keeps its marker.
func SanitizeTitle(title, marker string) string {
	s := collapseSpace(title)
	if rest, ok := strings.CutPrefix(strings.TrimLeftFunc(s, unicode.IsSpace), "!"); ok {
		s = rest
	}
	if n := len(marker); n > 0 && len(s) > n && strings.EqualFold(s[:n], marker) && s[n] == ' ' {
		s = s[n+1:]
	}
	return strings.TrimSpace(s)
}

// collapseSpace replaces every whitespace run in s, including leading and
// trailing ones, with a single space.
func collapseSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var lastUpdatePattern = regexp.MustCompile(`Last update:\s*(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2})`)

// ParseLastUpdate finds a "Last update: DD/MM/YYYY HH:MM" stamp in text and
// returns it interpreted in loc. It returns nil when there is no valid stamp.
func ParseLastUpdate(text string, loc *time.Location) *time.Time {
	m := lastUpdatePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	ts, err := time.ParseInLocation("02/01/2006 15:04", m[1]+" "+m[2], loc)
	if err != nil {
		return nil
	}
	return &ts
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
