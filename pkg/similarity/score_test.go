package similarity

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	evaSample = "qokeedy qokedy shedy chedy daiin okaiin chol chor shol cthy.dar"
	latSample = "radix contra febrem et dolorem capitis sumitur cum vino"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"Qokeedy   ShEdy", "qokeedy shedy"},
		{"  f1r: daiin,\tchol.\n", "f r daiin chol."},
		{"薬草 ab", "ab"},
		{"", ""},
		{"...", "..."},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNGrams(t *testing.T) {
	assert.Equal(t, Counts{"a": 2, "b": 1, " ": 1}, NGrams("ab A", 1))
	assert.Equal(t, Counts{"ab": 1, "b ": 1, " a": 1}, NGrams("ab a", 2))
	assert.Empty(t, NGrams("ab", 3))
	assert.Empty(t, NGrams("", 1))

	d := NGrams("aab", 1).Distribution()
	assert.InDelta(t, 2.0/3, d["a"], 1e-12)
	assert.InDelta(t, 1.0/3, d["b"], 1e-12)
	assert.Empty(t, Counts{}.Distribution())
}

func TestScoreIdentity(t *testing.T) {
	for _, text := range []string{evaSample, latSample, "ab"} {
		s := Score(text, text)
		assert.InDelta(t, 1.0, s.JSSimUnigram, 1e-12, "unigram for %q", text)
		assert.InDelta(t, 1.0, s.JSSimBigram, 1e-12, "bigram for %q", text)
		if len(text) >= 3 {
			assert.InDelta(t, 1.0, s.Cosine3Gram, 1e-12, "cosine for %q", text)
		}
	}
}

func TestScoreSymmetry(t *testing.T) {
	pairs := [][2]string{
		{evaSample, latSample},
		{"aaaa bbbb", "abab abab"},
		{evaSample, ""},
		{"qo", strings.Repeat("chedy ", 40)},
	}
	for _, p := range pairs {
		ab, ba := Score(p[0], p[1]), Score(p[1], p[0])
		assert.Equal(t, ab, ba, "Score is not symmetric for %q / %q", p[0], p[1])
	}
}

func TestScoreRanges(t *testing.T) {
	s := Score(evaSample, latSample)
	for name, v := range map[string]float64{
		"unigram": s.JSSimUnigram,
		"bigram":  s.JSSimBigram,
		"cosine":  s.Cosine3Gram,
	} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s is not finite", name)
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0+1e-12, name)
	}
	assert.Less(t, s.JSSimBigram, 1.0)

	// Disjoint alphabets share no mass.
	disjoint := Score("aaaa", "bbbb")
	assert.InDelta(t, 0.0, disjoint.JSSimUnigram, 1e-12)
	assert.InDelta(t, 0.0, disjoint.Cosine3Gram, 1e-12)
}

func TestScoreEmpty(t *testing.T) {
	both := Score("", "")
	assert.Equal(t, Scores{JSSimUnigram: 1, JSSimBigram: 1, Cosine3Gram: 0}, both)

	one := Score(evaSample, "")
	assert.InDelta(t, 0.5, one.JSSimUnigram, 1e-12)
	assert.InDelta(t, 0.5, one.JSSimBigram, 1e-12)
	assert.Equal(t, 0.0, one.Cosine3Gram)

	// Only characters outside the alphabet normalize to empty.
	assert.Equal(t, both, Score("123 !!", "  "))
}

func TestScoreReaders(t *testing.T) {
	s, err := ScoreReaders(strings.NewReader(evaSample), strings.NewReader(latSample))
	require.NoError(t, err)
	assert.Equal(t, Score(evaSample, latSample), s)

	boom := errors.New("boom")
	_, err = ScoreReaders(iotest.ErrReader(boom), strings.NewReader(""))
	assert.ErrorIs(t, err, boom)
	_, err = ScoreReaders(strings.NewReader(""), iotest.ErrReader(boom))
	assert.ErrorIs(t, err, boom)
}

func TestScoresWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := Scores{JSSimUnigram: 0.9, JSSimBigram: 0.1234567, Cosine3Gram: 1}.WriteTo(&buf)
	require.NoError(t, err)
	want := "js_sim_unigram\t0.900000\njs_sim_bigram\t0.123457\ncosine_3gram\t1.000000\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)
}

func BenchmarkScore(b *testing.B) {
	ref := strings.Repeat(evaSample+" ", 200)
	gen := strings.Repeat(latSample+" ", 200)
	for b.Loop() {
		Score(ref, gen)
	}
}
