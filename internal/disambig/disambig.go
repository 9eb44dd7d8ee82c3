// Package disambig expands a sequence of ambiguous key labels into every
// word they could spell and ranks the candidates.
package disambig

import (
	"sort"
	"unicode"
)

// DefaultMaxResults is the number of candidates Disambiguate returns.
const DefaultMaxResults = 5

// Boundary is the table index of the word boundary (space).
const Boundary = 26

// Table holds log10 odds indexed [previous][next]. Indices 0-25 are the
// letters A-Z and Boundary is the word boundary.
type Table [27][27]float64

// FrequencyOracle reports how often a word occurs in a corpus.
type FrequencyOracle interface {
	// Frequency returns the count of word, or false when it is unknown.
	Frequency(word string) (int, bool)
}

// Candidate is one spelling of a label sequence.
type Candidate struct {
	Word string
	// Score is the sum of bigram log odds along the word
	Score float64
	// Frequency is the dictionary count when HasFrequency is set
	Frequency    int
	HasFrequency bool
}

func (c Candidate) rank() float64 {
	if c.HasFrequency {
		return float64(c.Frequency)
	}
	return c.Score
}

// Option configures a Disambiguator.
type Option func(*Disambiguator)

// WithOracle ranks candidates found in the oracle by their frequency.
func WithOracle(o FrequencyOracle) Option {
	return func(d *Disambiguator) {
		d.oracle = o
	}
}

// WithTable replaces the English bigram table.
func WithTable(t *Table) Option {
	return func(d *Disambiguator) {
		if t != nil {
			d.table = t
		}
	}
}

// Disambiguator ranks label sequences. It holds no per-call state and is
// safe for concurrent use if its oracle is.
type Disambiguator struct {
	table  *Table
	oracle FrequencyOracle
}

// New creates a disambiguator using the English table and no oracle.
func New(opts ...Option) *Disambiguator {
	d := &Disambiguator{table: &English}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// index maps a character to its table index: space is the boundary, letters
// are case-folded. Other characters have no index.
func index(r rune) (int, bool) {
	if r == ' ' {
		return Boundary, true
	}
	u := unicode.ToUpper(r)
	if u >= 'A' && u <= 'Z' {
		return int(u - 'A'), true
	}
	return 0, false
}

// Bigram returns the log odds of b following a in t, or 0 when either
// character has no index.
func Bigram(t *Table, a, b rune) float64 {
	i, ok := index(a)
	if !ok {
		return 0
	}
	j, ok := index(b)
	if !ok {
		return 0
	}
	return t[i][j]
}

// Bigram returns the log odds of b following a in the configured table.
func (d *Disambiguator) Bigram(a, b rune) float64 {
	return Bigram(d.table, a, b)
}

// Guess returns the character of label most likely to follow last. Ties go
// to the earlier character; an empty label yields 0.
func (d *Disambiguator) Guess(label string, last rune) rune {
	var best rune
	bestScore := 0.0
	for i, c := range []rune(label) {
		score := d.Bigram(last, c)
		if i == 0 || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

type partial struct {
	last  rune
	word  []rune
	score float64
}

// Rank expands labels into candidate words and returns at most limit of
// them, best first. A label of one character is certain and adds no
// score; otherwise every character of the label is a branch scored by its
// bigram with the previous character. The first label is scored against
// the word boundary.
func (d *Disambiguator) Rank(labels []string, limit int) []Candidate {
	if len(labels) == 0 || limit <= 0 {
		return []Candidate{}
	}

	first := []rune(labels[0])
	frontier := make([]partial, 0, len(first))
	for _, c := range first {
		var score float64
		if len(first) > 1 {
			score = d.Bigram(' ', c)
		}
		frontier = append(frontier, partial{last: c, word: []rune{c}, score: score})
	}

	for _, label := range labels[1:] {
		chars := []rune(label)
		next := make([]partial, 0, len(frontier)*len(chars))
		for _, p := range frontier {
			if len(chars) == 1 {
				next = append(next, p.extend(chars[0], p.score))
				continue
			}
			for _, c := range chars {
				next = append(next, p.extend(c, p.score+d.Bigram(p.last, c)))
			}
		}
		frontier = next
	}

	candidates := make([]Candidate, len(frontier))
	for i, p := range frontier {
		c := Candidate{Word: string(p.word), Score: p.score}
		if d.oracle != nil {
			c.Frequency, c.HasFrequency = d.oracle.Frequency(c.Word)
		}
		candidates[i] = c
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank() > candidates[j].rank()
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func (p partial) extend(c rune, score float64) partial {
	word := make([]rune, len(p.word), len(p.word)+1)
	copy(word, p.word)
	return partial{last: c, word: append(word, c), score: score}
}

// DisambiguateN returns the words of the best limit candidates.
func (d *Disambiguator) DisambiguateN(labels []string, limit int) []string {
	ranked := d.Rank(labels, limit)
	words := make([]string, len(ranked))
	for i, c := range ranked {
		words[i] = c.Word
	}
	return words
}

// Disambiguate returns the words of the best DefaultMaxResults candidates.
func (d *Disambiguator) Disambiguate(labels []string) []string {
	return d.DisambiguateN(labels, DefaultMaxResults)
}

// Spellings returns how many words labels can spell.
func Spellings(labels []string) int {
	if len(labels) == 0 {
		return 0
	}
	n := 1
	for _, l := range labels {
		n *= len([]rune(l))
	}
	return n
}
