package similarity

import (
	"fmt"
	"io"
	"math"
)

// JSDivergence returns the base-2 Jensen-Shannon divergence of p and q, a
// value in [0,1].
func JSDivergence(p, q Distribution) float64 {
	keys := unionKeys(p, q)
	m := make(Distribution, len(keys))
	for _, k := range keys {
		m[k] = 0.5 * (p[k] + q[k])
	}
	return 0.5*kl(keys, p, m) + 0.5*kl(keys, q, m)
}

// kl is the Kullback-Leibler divergence of a from b over keys. Keys where a
// or b is not positive contribute nothing.
func kl(keys []string, a, b Distribution) float64 {
	var s float64
	for _, k := range keys {
		av, bv := a[k], b[k]
		if av <= 0 || bv <= 0 {
			continue
		}
		s += av * math.Log2(av/bv)
	}
	return s
}

// JSSimilarity returns 1 - JSDivergence(p, q).
func JSSimilarity(p, q Distribution) float64 {
	return 1 - JSDivergence(p, q)
}

// Cosine returns the cosine similarity of two count vectors. A zero vector
// has its norm taken as 1, so any comparison with it yields 0.
func Cosine(a, b Counts) float64 {
	var dot, na, nb float64
	for _, k := range unionKeys(a, b) {
		x, y := float64(a[k]), float64(b[k])
		dot += x * y
		na += x * x
		nb += y * y
	}
	na, nb = math.Sqrt(na), math.Sqrt(nb)
	if na == 0 {
		na = 1
	}
	if nb == 0 {
		nb = 1
	}
	return dot / (na * nb)
}

// Scores are the three similarity measures between a reference and a
// generated text.
type Scores struct {
	JSSimUnigram float64 `json:"js_sim_unigram"`
	JSSimBigram  float64 `json:"js_sim_bigram"`
	Cosine3Gram  float64 `json:"cosine_3gram"`
}

// Score compares two raw texts. Score(a, b) and Score(b, a) are identical.
func Score(reference, generated string) Scores {
	return Scores{
		JSSimUnigram: JSSimilarity(NGrams(reference, 1).Distribution(), NGrams(generated, 1).Distribution()),
		JSSimBigram:  JSSimilarity(NGrams(reference, 2).Distribution(), NGrams(generated, 2).Distribution()),
		Cosine3Gram:  Cosine(NGrams(reference, 3), NGrams(generated, 3)),
	}
}

// ScoreReaders reads both texts fully and scores them.
func ScoreReaders(reference, generated io.Reader) (Scores, error) {
	ref, err := io.ReadAll(reference)
	if err != nil {
		return Scores{}, fmt.Errorf("could not read reference text: %w", err)
	}
	gen, err := io.ReadAll(generated)
	if err != nil {
		return Scores{}, fmt.Errorf("could not read generated text: %w", err)
	}
	return Score(string(ref), string(gen)), nil
}

// WriteTo prints one "name\tvalue" line per score with six decimals.
func (s Scores) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "js_sim_unigram\t%.6f\njs_sim_bigram\t%.6f\ncosine_3gram\t%.6f\n",
		s.JSSimUnigram, s.JSSimBigram, s.Cosine3Gram)
	return int64(n), err
}
