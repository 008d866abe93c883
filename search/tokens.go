package search

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// BM25+ parameters.
const (
	bm25K1    = 1.2
	bm25B     = 0.7
	bm25Delta = 0.5
)

// Match weights relative to an exact token hit.
const (
	prefixWeight = 0.375
	fuzzyWeight  = 0.45

	// maxFuzzyDistance caps the edit distance regardless of term length.
	maxFuzzyDistance = 6
)

// TokenOptions controls how query terms are expanded.
type TokenOptions struct {
	// Boost multiplies every score. Zero means 1.
	Boost float64

	// Fuzzy is the edit distance allowed per query term as a fraction of
	// its length. Zero disables fuzzy matching.
	Fuzzy float64

	// Prefix also matches indexed tokens that start with a query term.
	Prefix bool
}

type posting struct {
	pos int
	tf  int
}

// TokenIndex is an inverted index from lower-cased title tokens to the
// catalog positions containing them, scored with BM25+.
type TokenIndex struct {
	postings map[string][]posting
	vocab    []string // sorted
	lengths  []int    // token count per position
	avgLen   float64
}

// NewTokenIndex indexes titles by position.
func NewTokenIndex(titles []string) *TokenIndex {
	ix := &TokenIndex{
		postings: make(map[string][]posting),
		lengths:  make([]int, len(titles)),
	}

	total := 0
	for pos, title := range titles {
		tokens := Tokenize(title)
		ix.lengths[pos] = len(tokens)
		total += len(tokens)

		counts := make(map[string]int, len(tokens))
		var order []string
		for _, tok := range tokens {
			if counts[tok] == 0 {
				order = append(order, tok)
			}
			counts[tok]++
		}
		for _, tok := range order {
			ix.postings[tok] = append(ix.postings[tok], posting{pos: pos, tf: counts[tok]})
		}
	}
	if len(titles) > 0 {
		ix.avgLen = float64(total) / float64(len(titles))
	}

	ix.vocab = make([]string, 0, len(ix.postings))
	for tok := range ix.postings {
		ix.vocab = append(ix.vocab, tok)
	}
	slices.Sort(ix.vocab)
	return ix
}

// Tokenize lower-cases text, splits it on whitespace and trims
// surrounding punctuation from every token. Empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// Search scores every position matching at least one query term.
// Scores of several terms add up.
func (ix *TokenIndex) Search(query string, opts TokenOptions) map[int]float64 {
	boost := opts.Boost
	if boost == 0 {
		boost = 1
	}

	scores := make(map[int]float64)
	for _, term := range Tokenize(query) {
		for tok, weight := range ix.expand(term, opts) {
			ix.score(tok, weight*boost, scores)
		}
	}
	return scores
}

// expand returns the indexed tokens matched by term with their weights.
// A token matched several ways keeps its best weight.
func (ix *TokenIndex) expand(term string, opts TokenOptions) map[string]float64 {
	matches := make(map[string]float64)
	if _, ok := ix.postings[term]; ok {
		matches[term] = 1
	}

	termLen := float64(len([]rune(term)))
	keep := func(tok string, w float64) {
		if w > matches[tok] {
			matches[tok] = w
		}
	}

	if opts.Prefix {
		for i, _ := slices.BinarySearch(ix.vocab, term); i < len(ix.vocab) && strings.HasPrefix(ix.vocab[i], term); i++ {
			tok := ix.vocab[i]
			if tok == term {
				continue
			}
			extra := float64(len([]rune(tok))) - termLen
			keep(tok, prefixWeight*termLen/(termLen+0.3*extra))
		}
	}

	if opts.Fuzzy > 0 {
		maxDist := min(int(math.Round(opts.Fuzzy*termLen)), maxFuzzyDistance)
		if maxDist > 0 {
			for _, tok := range ix.vocab {
				if tok == term {
					continue
				}
				if d, ok := boundedLevenshtein(term, tok, maxDist); ok {
					keep(tok, fuzzyWeight*termLen/(termLen+float64(d)))
				}
			}
		}
	}
	return matches
}

// score adds the BM25+ contribution of tok, scaled by weight, to scores.
func (ix *TokenIndex) score(tok string, weight float64, scores map[int]float64) {
	list := ix.postings[tok]
	n := float64(len(ix.lengths))
	df := float64(len(list))
	idf := math.Log(1 + (n-df+0.5)/(df+0.5))

	for _, p := range list {
		tf := float64(p.tf)
		norm := 1 - bm25B + bm25B*float64(ix.lengths[p.pos])/ix.avgLen
		scores[p.pos] += weight * idf * (bm25Delta + tf*(bm25K1+1)/(tf+bm25K1*norm))
	}
}

// boundedLevenshtein returns the edit distance between a and b when it is
// at most limit.
func boundedLevenshtein(a, b string, limit int) (int, bool) {
	ra, rb := []rune(a), []rune(b)
	if diff := len(ra) - len(rb); diff > limit || -diff > limit {
		return 0, false
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > limit {
			return 0, false
		}
		prev, cur = cur, prev
	}
	if d := prev[len(rb)]; d <= limit {
		return d, true
	}
	return 0, false
}
