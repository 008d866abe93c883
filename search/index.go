// Package search builds the immutable in-memory index used to rank catalog
// entries against free-text queries.
//
// An Index fuses three strategies: a BM25+ token index with prefix and
// edit-distance expansion, an in-order character match over the whole
// title, and literal contains/starts-with bonuses that keep obvious hits on
// top.
package search

import (
	"cmp"
	"slices"
	"strings"

	"github.com/fwojciec/linkdex"
)

// DefaultLimit is used when a query asks for zero or fewer results.
const DefaultLimit = 5

// Fusion weights.
const (
	tokenScoreWeight = 150
	fuzzyHitBonus    = 500
	containsBonus    = 1000
	startsWithBonus  = 2000
)

// defaultTokenOptions mirrors the interactive search settings: titles are
// boosted, prefixes match and each term tolerates edits up to 40% of its
// length.
var defaultTokenOptions = TokenOptions{Boost: 2, Fuzzy: 0.4, Prefix: true}

// Index is a search index over one catalog snapshot. It is never modified
// after Build and is safe for concurrent use.
type Index struct {
	entries  []linkdex.Entry
	titles   *Trie
	tokens   *TokenIndex
	prepared Prepared
}

// Build indexes entries by position. An empty catalog yields an index for
// which every query returns no results.
func Build(entries []linkdex.Entry) *Index {
	titles := make([]string, len(entries))
	trie := NewTrie()
	for i, e := range entries {
		titles[i] = e.Title
		trie.Insert(e.Title, i)
	}

	return &Index{
		entries:  slices.Clone(entries),
		titles:   trie,
		tokens:   NewTokenIndex(titles),
		prepared: Prepare(titles),
	}
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns a copy of the indexed entries in catalog order.
func (ix *Index) Entries() []linkdex.Entry {
	return slices.Clone(ix.entries)
}

type candidate struct {
	pos   int
	score float64
}

// Search ranks entries against query and returns at most limit results.
func (ix *Index) Search(query string, limit int) []linkdex.SearchResult {
	query = strings.TrimSpace(query)
	if query == "" || len(ix.entries) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Candidates are keyed by link so one record never appears twice.
	byLink := make(map[string]*candidate)
	get := func(pos int) *candidate {
		link := ix.entries[pos].Link
		c, ok := byLink[link]
		if !ok {
			c = &candidate{pos: pos}
			byLink[link] = c
		}
		return c
	}

	for pos, score := range ix.tokens.Search(query, defaultTokenOptions) {
		get(pos).score += score * tokenScoreWeight
	}
	for _, m := range ix.prepared.Find(query, 2*limit) {
		get(m.Pos).score += float64(m.Score) + fuzzyHitBonus
	}

	lowerQuery := strings.ToLower(query)
	ranked := make([]*candidate, 0, len(byLink))
	for _, c := range byLink {
		c.score += literalBonus(strings.ToLower(ix.entries[c.pos].Title), lowerQuery)
		ranked = append(ranked, c)
	}

	slices.SortFunc(ranked, func(a, b *candidate) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.pos, b.pos)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	results := make([]linkdex.SearchResult, len(ranked))
	for i, c := range ranked {
		results[i] = linkdex.SearchResult{Title: ix.entries[c.pos].Title, Link: ix.entries[c.pos].Link}
	}
	return results
}

func literalBonus(title, query string) float64 {
	var bonus float64
	if strings.Contains(title, query) {
		bonus += containsBonus
	}
	if strings.HasPrefix(title, query) {
		bonus += startsWithBonus
	}
	return bonus
}

// Complete returns up to limit entries whose title starts with prefix, in
// catalog order. A limit of zero or less returns every match.
func (ix *Index) Complete(prefix string, limit int) []linkdex.SearchResult {
	positions := ix.titles.PrefixLookup(strings.TrimLeft(prefix, " \t"))
	if limit > 0 && len(positions) > limit {
		positions = positions[:limit]
	}
	if len(positions) == 0 {
		return nil
	}
	results := make([]linkdex.SearchResult, len(positions))
	for i, pos := range positions {
		results[i] = linkdex.SearchResult{Title: ix.entries[pos].Title, Link: ix.entries[pos].Link}
	}
	return results
}
