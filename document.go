package linkdex

// Document is the geometric view of a page-rendered spreadsheet export.
// Only the signal needed to rebuild table rows is kept: positioned text and
// hyperlink rectangles.
type Document struct {
	Pages []Page
}

// Page holds the text runs and link annotations of one rendered page.
type Page struct {
	Runs        []TextRun
	Annotations []Annotation
}

// TextRun is a string drawn at a position. Y grows upwards as in PDF user space.
type TextRun struct {
	Text string
	X    float64
	Y    float64
}

// Annotation is a hyperlink laid over a rectangle of the page.
type Annotation struct {
	URL  string
	Rect Rect
}

// Rect is an axis-aligned rectangle given by two opposite corners.
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// Anchor returns the vertical coordinate used to bind an annotation to a
// line of text: the lower edge of the rectangle.
func (r Rect) Anchor() float64 {
	return min(r.Y1, r.Y2)
}
