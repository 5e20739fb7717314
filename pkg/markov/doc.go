/*
Package markov builds, stores and samples character bigram models of the EVA
transcription corpus.

A Builder reads the first N lines of a corpus into an immutable Model holding
P(next character | previous character) and the distribution of word-initial
character pairs. A Model generates lines deterministically from a 32-bit seed,
optionally tilted towards one of two writing "streams", and can be persisted
as flat JSON (FileStore) or as rows in a SQLite database (SQLiteStore).

Generation never mutates the Model, so one Model may serve any number of
concurrent callers.
*/
package markov
