/*
Package corpus reads the EVA transcription corpus that the markov package
learns from.

An IVTFF file interleaves locus headers, comments and transcription text. The
readers in this package turn such a file, or an already-cleaned text file, into
a lazily consumed sequence of clean lines containing only lowercase letters,
dots and single spaces.
*/
package corpus
