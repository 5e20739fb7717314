package corpus

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// maxLineSize bounds a single transcription line held in memory.
const maxLineSize = 1 << 20

// Format names a corpus file layout understood by Open.
type Format string

const (
	// FormatIVTFF is an interlinear IVTFF transcription with <f...> locus headers.
	FormatIVTFF Format = "ivtff"
	// FormatPlain is a file holding one clean line per line.
	FormatPlain Format = "plain"
	// FormatAuto sniffs the first meaningful line of the file.
	FormatAuto Format = "auto"
)

// ParseFormat converts a user supplied string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatIVTFF:
		return FormatIVTFF, nil
	case FormatPlain:
		return FormatPlain, nil
	case FormatAuto, "":
		return FormatAuto, nil
	default:
		return "", fmt.Errorf("unknown corpus format %q", s)
	}
}

// LineReader is a stateful producer of clean corpus lines.
type LineReader interface {
	// Next returns the next clean line. It returns io.EOF as the error when
	// the underlying stream is fully consumed.
	Next() (string, error)
}

// LineReadCloser is a LineReader that owns an underlying file.
type LineReadCloser interface {
	LineReader
	io.Closer
}

var (
	// nonEVARegex matches every character that is not part of a clean EVA line.
	nonEVARegex = regexp.MustCompile(`[^a-z.\s]`)
	// spaceRunRegex matches runs of whitespace.
	spaceRunRegex = regexp.MustCompile(`\s+`)
)

// Clean lowercases text, replaces every character other than letters, dots
// and whitespace with a space, collapses whitespace runs and trims the result.
func Clean(text string) string {
	text = nonEVARegex.ReplaceAllString(strings.ToLower(text), " ")
	return strings.TrimSpace(spaceRunRegex.ReplaceAllString(text, " "))
}

// IVTFFReader extracts transcription text from an IVTFF stream.
// Only locus lines of the form "<f116v.1,@Lx;U>    oror.sheey" are kept, and
// only the text after the first '>'.
type IVTFFReader struct {
	scanner *bufio.Scanner
}

// NewIVTFFReader returns a reader over an IVTFF stream.
func NewIVTFFReader(r io.Reader) *IVTFFReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &IVTFFReader{scanner: scanner}
}

// Next returns the next non-empty cleaned transcription line.
func (r *IVTFFReader) Next() (string, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "<f") {
			continue
		}
		_, after, found := strings.Cut(line, ">")
		if !found {
			continue
		}
		if text := Clean(after); text != "" {
			return text, nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// PlainReader reads a file that already holds one clean line per line, such
// as the output of Extract. Blank lines are skipped.
type PlainReader struct {
	scanner *bufio.Scanner
}

// NewPlainReader returns a reader over already cleaned text.
func NewPlainReader(r io.Reader) *PlainReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &PlainReader{scanner: scanner}
}

// Next returns the next non-blank line with surrounding whitespace removed.
func (r *PlainReader) Next() (string, error) {
	for r.scanner.Scan() {
		if line := strings.TrimSpace(r.scanner.Text()); line != "" {
			return line, nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// NewReader wraps r in the reader for the given format. FormatAuto buffers the
// stream to inspect its first meaningful line.
func NewReader(r io.Reader, format Format) (LineReader, error) {
	switch format {
	case FormatIVTFF:
		return NewIVTFFReader(r), nil
	case FormatPlain:
		return NewPlainReader(r), nil
	case FormatAuto, "":
		br := bufio.NewReaderSize(r, 64*1024)
		if sniffIVTFF(br) {
			return NewIVTFFReader(br), nil
		}
		return NewPlainReader(br), nil
	default:
		return nil, fmt.Errorf("unknown corpus format %q", format)
	}
}

// sniffIVTFF reports whether the first non-blank, non-comment line in the
// buffered prefix of br starts with '<'. It does not consume input.
func sniffIVTFF(br *bufio.Reader) bool {
	head, _ := br.Peek(br.Size())
	for len(head) > 0 {
		var line []byte
		line, head, _ = bytes.Cut(head, []byte("\n"))
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		return line[0] == '<'
	}
	return false
}

type fileReader struct {
	LineReader
	f *os.File
}

func (r *fileReader) Close() error {
	return r.f.Close()
}

// Open opens the corpus file at path with the given format.
// The caller must Close the returned reader.
func Open(path string, format Format) (LineReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open corpus: %w", err)
	}
	lr, err := NewReader(f, format)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &fileReader{LineReader: lr, f: f}, nil
}
