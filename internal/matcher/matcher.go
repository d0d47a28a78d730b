// Package matcher finds the catalog item a free-text phrase most likely
// refers to, tolerating small typos via Levenshtein distance.
package matcher

import (
	"errors"
	"strings"
	"unicode/utf8"

	"coffebuck/internal/catalog"
)

const (
	// Threshold is the largest edit distance still accepted as a match.
	Threshold = 3

	// MaxQueryRunes bounds matcher cost. No catalog name is anywhere near
	// this long, so longer queries cannot be within Threshold of any item.
	MaxQueryRunes = 64
)

// ErrNoMatch reports that no item is within Threshold of the query.
var ErrNoMatch = errors.New("no menu item matches")

// Result is the closest accepted item for a query.
type Result struct {
	Key      string
	Item     catalog.MenuItem
	Distance int
}

// Exact reports whether the query named the item verbatim (case-folded).
func (r Result) Exact() bool { return r.Distance == 0 }

// FindClosest returns the item whose lowercased name is nearest to the
// trimmed, lowercased query. Ties go to the item declared first in the
// catalog. ok is false when the query is empty, too long, or nothing is
// within Threshold.
func FindClosest(query string, c *catalog.Catalog) (Result, bool) {
	q := []rune(strings.ToLower(strings.TrimSpace(query)))
	if len(q) == 0 || len(q) > MaxQueryRunes || c == nil {
		return Result{}, false
	}

	best := Result{Distance: Threshold + 1}
	found := false
	c.Each(func(item catalog.MenuItem) {
		name := []rune(strings.ToLower(item.Name))
		// |len(q)-len(name)| is a lower bound on the distance.
		if abs(len(q)-len(name)) >= best.Distance {
			return
		}
		d := distance(q, name)
		if d < best.Distance {
			best = Result{Key: item.Key, Item: item, Distance: d}
			found = true
		}
	})
	if !found {
		return Result{}, false
	}
	return best, true
}

// Find is FindClosest with an error instead of a bool.
func Find(query string, c *catalog.Catalog) (Result, error) {
	r, ok := FindClosest(query, c)
	if !ok {
		return Result{}, ErrNoMatch
	}
	return r, nil
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	if utf8.RuneCountInString(a) == 0 {
		return utf8.RuneCountInString(b)
	}
	if utf8.RuneCountInString(b) == 0 {
		return utf8.RuneCountInString(a)
	}
	return distance([]rune(a), []rune(b))
}

// distance fills the classic DP matrix two rows at a time.
func distance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1]
				continue
			}
			curr[j] = 1 + min(prev[j-1], prev[j], curr[j-1])
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
