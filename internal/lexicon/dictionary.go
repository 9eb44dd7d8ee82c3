// Package lexicon provides the word-frequency oracle used to rank
// disambiguated words, plus completions and spelling suggestions.
package lexicon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	// CompletionCount is the maximum number of completions returned
	CompletionCount = 16
	// MaxEditDistance bounds the edit distance of suggestions
	MaxEditDistance = 2
)

// ErrMalformedLine indicates a frequency list line without a valid count
var ErrMalformedLine = errors.New("malformed frequency line")

// Verbosity controls how many suggestions are returned.
type Verbosity int

const (
	// VerbosityTop returns the single best suggestion
	VerbosityTop Verbosity = iota
	// VerbosityClosest returns every suggestion at the smallest distance
	VerbosityClosest
	// VerbosityAll returns every suggestion within the maximum distance
	VerbosityAll
)

// Suggestion is a dictionary word near the looked-up term.
type Suggestion struct {
	Term     string
	Distance int
	Count    int64
}

// Dictionary maps lower-case terms to corpus counts. It is read-only after
// loading and safe for concurrent readers.
type Dictionary struct {
	counts map[string]int64
	// sorted holds every term in lexical order for prefix scans
	sorted []string
}

// NewDictionary builds a dictionary from term counts. Terms are folded to
// lower case and counts of duplicate terms are summed.
func NewDictionary(counts map[string]int64) *Dictionary {
	d := &Dictionary{counts: make(map[string]int64, len(counts))}
	for term, n := range counts {
		d.add(term, n)
	}
	d.index()
	return d
}

// Load reads a frequency list: one "term count" pair per line, separated
// by whitespace. The count is the last field. Blank lines and lines
// starting with # are skipped.
func Load(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{counts: make(map[string]int64)}
	err := scanCounts(r, func(term string, n int64) error {
		d.add(term, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.index()
	return d, nil
}

func scanCounts(r io.Reader, fn func(term string, n int64) error) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return fmt.Errorf("%w: line %d: %q", ErrMalformedLine, line, text)
		}
		n, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrMalformedLine, line, err)
		}
		if err := fn(fields[0], n); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read frequency list: %w", err)
	}
	return nil
}

// LoadFile reads a frequency list from path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (d *Dictionary) add(term string, n int64) {
	term = strings.ToLower(term)
	if term == "" || n <= 0 {
		return
	}
	d.counts[term] += n
}

func (d *Dictionary) index() {
	d.sorted = make([]string, 0, len(d.counts))
	for term := range d.counts {
		d.sorted = append(d.sorted, term)
	}
	sort.Strings(d.sorted)
}

// Len returns the number of distinct terms.
func (d *Dictionary) Len() int {
	return len(d.counts)
}

// Count returns the corpus count of word.
func (d *Dictionary) Count(word string) (int64, bool) {
	n, ok := d.counts[strings.ToLower(word)]
	return n, ok
}

// Frequency returns the count of word clamped to int. It satisfies
// disambig.FrequencyOracle.
func (d *Dictionary) Frequency(word string) (int, bool) {
	n, ok := d.Count(word)
	if !ok {
		return 0, false
	}
	if n > math.MaxInt {
		return math.MaxInt, true
	}
	return int(n), true
}

// Terms calls fn for every term in lexical order until fn returns false.
func (d *Dictionary) Terms(fn func(term string, count int64) bool) {
	for _, term := range d.sorted {
		if !fn(term, d.counts[term]) {
			return
		}
	}
}

// Completions returns up to CompletionCount terms starting with prefix,
// most frequent first.
func (d *Dictionary) Completions(prefix string) []string {
	prefix = strings.ToLower(prefix)
	start := sort.SearchStrings(d.sorted, prefix)

	var matches []string
	for _, term := range d.sorted[start:] {
		if !strings.HasPrefix(term, prefix) {
			break
		}
		matches = append(matches, term)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return d.counts[matches[i]] > d.counts[matches[j]]
	})
	if len(matches) > CompletionCount {
		matches = matches[:CompletionCount]
	}
	return matches
}

// Lookup returns dictionary terms within min(len(word), MaxEditDistance)
// edits of word, closest first and then most frequent. The word itself is
// never returned.
func (d *Dictionary) Lookup(word string, v Verbosity) []Suggestion {
	word = strings.ToLower(word)
	w := []rune(word)
	maxDist := len(w)
	if maxDist > MaxEditDistance {
		maxDist = MaxEditDistance
	}
	if maxDist == 0 {
		return nil
	}

	var found []Suggestion
	for _, term := range d.sorted {
		if term == word {
			continue
		}
		t := []rune(term)
		if abs(len(t)-len(w)) > maxDist {
			continue
		}
		dist := distance(w, t)
		if dist > maxDist {
			continue
		}
		found = append(found, Suggestion{Term: term, Distance: dist, Count: d.counts[term]})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].Count > found[j].Count
	})

	switch v {
	case VerbosityTop:
		if len(found) > 1 {
			found = found[:1]
		}
	case VerbosityClosest:
		n := 0
		for n < len(found) && found[n].Distance == found[0].Distance {
			n++
		}
		found = found[:n]
	}
	return found
}

// Suggestions returns the terms of Lookup.
func (d *Dictionary) Suggestions(word string, v Verbosity) []string {
	found := d.Lookup(word, v)
	out := make([]string, len(found))
	for i, s := range found {
		out[i] = s.Term
	}
	return out
}

// distance is the optimal string alignment distance: Levenshtein plus
// transposition of adjacent characters.
func distance(a, b []rune) int {
	d := make([][]int, len(a)+1)
	for i := range d {
		d[i] = make([]int, len(b)+1)
		d[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		d[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[len(a)][len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
