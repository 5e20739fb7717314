package markov

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/CTAG07/evagen/pkg/card"
)

const (
	// wordSeedStride separates the seeds of consecutive words in a line.
	wordSeedStride = 9973
	// pcgStream is the fixed second word of every PCG seed.
	pcgStream = 0x9e3779b97f4a7c15

	minTargetLength  = 3
	baseLengthMin    = 4
	baseLengthSpread = 5
	targetLengthSD   = 1.2
	dotProbability   = 0.12

	// maxWalkDraws caps the draws spent on one word, which only matters for
	// loaded models whose transitions lead back to the start marker.
	maxWalkDraws = 1024
)

var (
	// ErrEmptyModel is returned when a model has no starters to begin a word with.
	ErrEmptyModel = errors.New("model has no starters")
	// ErrInvalidWordCount is returned for a negative word count.
	ErrInvalidWordCount = errors.New("word count must not be negative")
)

// Stream is a biasing mode applied to every next-character draw.
type Stream string

const (
	// StreamA slightly favours 'q' and 'o', the feel of q- prefixed words.
	StreamA Stream = "A"
	// StreamB slightly favours 'c', 'h', 's', 'e' and 'y', the feel of ch/sh words.
	StreamB Stream = "B"
)

// streamBoost lists the symbols a stream multiplies and by how much.
var streamBoost = map[Stream]struct {
	symbols []string
	factor  float64
}{
	StreamA: {symbols: []string{"q", "o"}, factor: 1.25},
	StreamB: {symbols: []string{"c", "h", "s", "e", "y"}, factor: 1.20},
}

// ParseStream converts "a"/"A"/"b"/"B" into a Stream.
func ParseStream(s string) (Stream, error) {
	st := Stream(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := streamBoost[st]; !ok {
		return "", fmt.Errorf("unknown stream %q", s)
	}
	return st, nil
}

// Bias multiplies the probability of the stream's favoured symbols and
// renormalizes. An empty distribution, an unknown stream's zero boost and a
// non-positive total all fall back to returning d itself.
func Bias(stream Stream, d *Distribution) *Distribution {
	if d.Len() == 0 {
		return d
	}
	boost := streamBoost[Stream(strings.ToUpper(string(stream)))]

	out := newDistribution(d.Len())
	for k, p := range d.All() {
		out.set(k, p)
	}
	for _, sym := range boost.symbols {
		if out.Has(sym) {
			out.probs[sym] *= boost.factor
		}
	}

	s := out.Sum()
	if s <= 0 {
		return d
	}
	for _, k := range out.keys {
		out.probs[k] /= s
	}
	return out
}

// Choose draws one key of d by cumulative weight: the first key whose running
// total reaches a uniform draw in [0,1). When rounding leaves the total short
// of the draw, the last key is returned. ok is false only for an empty d.
func Choose(rng *rand.Rand, d *Distribution) (key string, ok bool) {
	if d.Len() == 0 {
		return "", false
	}
	r := rng.Float64()
	var acc float64
	for k, p := range d.All() {
		acc += p
		key = k
		if r <= acc {
			return k, true
		}
	}
	// Cumulative sum fell short of r; keep the last key seen.
	return key, true
}

// newRand returns the deterministic generator used for one word.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// Word generates one word. It starts from hint when hint's first two
// characters are a known starter, otherwise from a starter drawn from rng,
// and then walks the bigram chain with stream bias until the word holds
// max(3, targetLen) characters, the end marker is drawn, or the last
// character has no outgoing transitions. Word returns "" for a model without
// starters.
func (m *Model) Word(rng *rand.Rand, stream Stream, targetLen int, hint string) string {
	start := ""
	if r := []rune(hint); len(r) >= 2 {
		if h2 := strings.ToLower(string(r[:2])); m.starters.Has(h2) {
			start = h2
		}
	}
	if start == "" {
		var ok bool
		if start, ok = Choose(rng, m.starters); !ok {
			return ""
		}
	}

	var sb strings.Builder
	sb.WriteString(start)
	length := utf8.RuneCountInString(start)
	last, _ := utf8.DecodeLastRuneInString(start)
	prev := string(last)

	limit := max(minTargetLength, targetLen)
	for draws := 0; length < limit && draws < maxWalkDraws; draws++ {
		probs, ok := m.bigram[prev]
		if !ok {
			break
		}
		next, _ := Choose(rng, Bias(stream, probs))
		if next == EndMarker {
			break
		}
		if next == StartMarker {
			continue
		}
		sb.WriteString(next)
		length++
		prev = next
	}
	return sb.String()
}

// GenerateLine produces words space-separated words from seed. The line
// depends only on m, seed, hint, stream and words.
//
// The seed fixes a base word length 4 + seed%5. Word i draws from its own
// generator seeded with seed + i*9973: first a target length from a normal
// distribution around the base length (sd 1.2, at least 3), then the word
// itself, then a 12% chance of a trailing '.'.
func (m *Model) GenerateLine(seed uint32, hint string, stream Stream, words int) (string, error) {
	if words < 0 {
		return "", ErrInvalidWordCount
	}
	if words == 0 {
		return "", nil
	}
	if m.starters.Len() == 0 {
		return "", ErrEmptyModel
	}

	base := baseLengthMin + int(seed%baseLengthSpread)
	toks := make([]string, 0, words)
	for i := range words {
		rng := newRand(uint64(seed) + uint64(i)*wordSeedStride)
		target := max(minTargetLength, int(float64(base)+rng.NormFloat64()*targetLengthSD))
		w := m.Word(rng, stream, target, hint)
		if rng.Float64() < dotProbability {
			w += "."
		}
		toks = append(toks, w)
	}
	return strings.Join(toks, " "), nil
}

// GenerateFromCard produces a line seeded from c's content. Two cards that
// differ in evidence or source almost always produce different lines.
func (m *Model) GenerateFromCard(c *card.Card, stream Stream, words int) (string, error) {
	return m.GenerateLine(card.SeedHash(c), card.StartHint(c), stream, words)
}
