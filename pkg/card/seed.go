package card

import (
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	conceptPrefixLen  = 50
	evidencePrefixLen = 120
	seedDelimiter     = "|"
)

// SeedString builds the stable text a card's seed is hashed from. Changing
// the evidence or source of a card changes this string.
//
// The fields id, domain, the first 50 characters of concept_ja, the first
// 120 characters of evidence_latin, source.work and source.locator are
// rendered canonically, empty parts are dropped, and the rest are joined with
// '|', lowercased and whitespace-collapsed.
func SeedString(c *Card) string {
	src := c.Get("source")
	if !src.Truthy() {
		src = Map(nil)
	}
	raw := []string{
		c.Get("id").String(),
		c.Get("domain").String(),
		prefix(orEmpty(c.Get("concept_ja")), conceptPrefixLen),
		prefix(orEmpty(c.Get("evidence_latin")), evidencePrefixLen),
		src.Get("work").String(),
		src.Get("locator").String(),
	}
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return collapseSpace(strings.ToLower(strings.Join(parts, seedDelimiter)))
}

// Hash is the 32-bit FNV-1a hash of s's UTF-8 bytes.
func Hash(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// SeedHash returns the generation seed for c.
func SeedHash(c *Card) uint32 {
	return Hash(SeedString(c))
}

// StartHint returns the first two ASCII letters of the card's lowercased
// evidence_latin, or "" when it holds fewer than two.
func StartHint(c *Card) string {
	latin := strings.ToLower(orEmpty(c.Get("evidence_latin")))
	var hint []byte
	for i := 0; i < len(latin) && len(hint) < 2; i++ {
		if b := latin[i]; b >= 'a' && b <= 'z' {
			hint = append(hint, b)
		}
	}
	if len(hint) < 2 {
		return ""
	}
	return string(hint)
}

func orEmpty(v Value) string {
	if !v.Truthy() {
		return ""
	}
	return v.String()
}

func prefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// collapseSpace replaces every run of whitespace with a single space. The
// ends are not trimmed.
func collapseSpace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				sb.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}
