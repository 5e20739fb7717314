package markov

import "regexp"

// LineSource supplies clean corpus lines to a Builder. The corpus package
// provides implementations for IVTFF and plain text files.
type LineSource interface {
	// Next returns the next line. It returns io.EOF as the error when the
	// source is exhausted.
	Next() (string, error)
}

// minWordLength is the shortest word that contributes to the model.
const minWordLength = 2

var (
	// wordSplitRegex separates words on runs of dots and whitespace.
	wordSplitRegex = regexp.MustCompile(`[.\s]+`)
	// nonLetterRegex matches everything that is stripped from a word.
	nonLetterRegex = regexp.MustCompile(`[^a-z]`)
)

// SplitWords returns the words of a corpus line that are long enough to
// train on, with every non-letter removed.
func SplitWords(line string) []string {
	parts := wordSplitRegex.Split(line, -1)
	words := parts[:0]
	for _, p := range parts {
		if p == "" {
			continue
		}
		w := nonLetterRegex.ReplaceAllString(p, "")
		if len(w) < minWordLength {
			continue
		}
		words = append(words, w)
	}
	return words
}
