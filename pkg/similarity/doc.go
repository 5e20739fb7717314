// Package similarity scores how close two texts are in their character
// n-gram statistics: Jensen-Shannon similarity of unigram and bigram
// distributions and cosine similarity of 3-gram counts.
package similarity
