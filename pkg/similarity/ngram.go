package similarity

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	disallowedRegex = regexp.MustCompile(`[^a-z. ]`)
	spaceRunRegex   = regexp.MustCompile(`\s+`)
)

// Normalize lowercases text, replaces everything outside [a-z. ] with a
// space, collapses whitespace runs and trims the result.
func Normalize(text string) string {
	text = disallowedRegex.ReplaceAllString(strings.ToLower(text), " ")
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(text, " "))
}

// Counts maps each n-gram to the number of times it occurs.
type Counts map[string]int

// NGrams counts the n-grams of the normalized text with a window sliding
// one character at a time. Text shorter than n yields empty Counts.
func NGrams(text string, n int) Counts {
	text = Normalize(text)
	c := make(Counts)
	if n <= 0 || len(text) < n {
		return c
	}
	for i := 0; i+n <= len(text); i++ {
		c[text[i:i+n]]++
	}
	return c
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	var total int
	for _, v := range c {
		total += v
	}
	return total
}

// Distribution divides every count by the total. Empty Counts give an empty
// Distribution.
func (c Counts) Distribution() Distribution {
	d := make(Distribution, len(c))
	total := c.Total()
	if total == 0 {
		return d
	}
	for k, v := range c {
		d[k] = float64(v) / float64(total)
	}
	return d
}

// Distribution maps each n-gram to its relative frequency.
type Distribution map[string]float64

// unionKeys returns the keys of a and b in sorted order, so that sums over
// them do not depend on map iteration order.
func unionKeys[V any](a, b map[string]V) []string {
	keys := slices.Collect(maps.Keys(a))
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
