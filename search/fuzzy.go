package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Prepared holds the normalized form of every title for approximate
// substring matching. It implements fuzzy.Source.
type Prepared []string

var _ fuzzy.Source = Prepared(nil)

// Prepare lower-cases titles and collapses their whitespace.
func Prepare(titles []string) Prepared {
	p := make(Prepared, len(titles))
	for i, t := range titles {
		p[i] = normalize(t)
	}
	return p
}

// String returns the prepared title at position i.
func (p Prepared) String(i int) string { return p[i] }

// Len returns the number of prepared titles.
func (p Prepared) Len() int { return len(p) }

// FuzzyMatch is one title matched by Prepared.Find.
type FuzzyMatch struct {
	Pos   int
	Score int
}

// Find returns the titles containing every character of query in order,
// best score first and then by position. At most limit matches are
// returned; a limit of zero or less returns all of them.
func (p Prepared) Find(query string, limit int) []FuzzyMatch {
	query = normalize(query)
	if query == "" || len(p) == 0 {
		return nil
	}

	found := fuzzy.FindFrom(query, p)
	matches := make([]FuzzyMatch, 0, len(found))
	for _, m := range found {
		matches = append(matches, FuzzyMatch{Pos: m.Index, Score: m.Score})
	}
	slices.SortStableFunc(matches, func(a, b FuzzyMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Pos, b.Pos)
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
