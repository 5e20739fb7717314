package corpus

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleIVTFF = `#=IVTFF Eva- 2.0
# comment line
<f1r>      <! $I=T $Q=A $P=A $L=A $H=1>
<f1r.1,@P0;H>       fachys.ykal.ar.ataiin.shol.shory.cth!res.y.kor.sholdy!-
<f1r.2,+P0;H>       sory.ckhar.or{&y}.kair.chtaiin.shar.are.cthar.cthar.dan!-

<f1r.3,+P0;H>       !!!!
<x1r.4,+P0;H>       ignored.line
<f1r.5,+P0;H>       DAIIN  SHEEY
`

func readAll(t *testing.T, lr LineReader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return lines
		}
		if err != nil {
			t.Fatalf("Next() failed: %v", err)
		}
		lines = append(lines, line)
	}
}

func TestClean(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"  oror.sheey!!!!!!", "oror.sheey"},
		{"Qokeedy\t\tCHEDY", "qokeedy chedy"},
		{"{&y}.kair", "y .kair"},
		{"1234", ""},
		{"", ""},
	}
	for _, tc := range testCases {
		if got := Clean(tc.in); got != tc.want {
			t.Errorf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIVTFFReader(t *testing.T) {
	lines := readAll(t, NewIVTFFReader(strings.NewReader(sampleIVTFF)))
	want := []string{
		"i t q a p a l a h",
		"fachys.ykal.ar.ataiin.shol.shory.cth res.y.kor.sholdy",
		"sory.ckhar.or y .kair.chtaiin.shar.are.cthar.cthar.dan",
		"daiin sheey",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestPlainReaderSkipsBlankLines(t *testing.T) {
	lines := readAll(t, NewPlainReader(strings.NewReader("daiin shey\n\n   \nqokeedy\n")))
	if len(lines) != 2 || lines[0] != "daiin shey" || lines[1] != "qokeedy" {
		t.Errorf("unexpected lines: %q", lines)
	}
}

func TestNewReaderAutoDetect(t *testing.T) {
	lr, err := NewReader(strings.NewReader(sampleIVTFF), FormatAuto)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, ok := lr.(*IVTFFReader); !ok {
		t.Errorf("expected an IVTFF reader for IVTFF input, got %T", lr)
	}

	lr, err = NewReader(strings.NewReader("daiin shey\nqokeedy\n"), FormatAuto)
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, ok := lr.(*PlainReader); !ok {
		t.Errorf("expected a plain reader for clean input, got %T", lr)
	}

	if _, err = NewReader(strings.NewReader(""), Format("xml")); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"IVTFF": FormatIVTFF, "plain": FormatPlain, "": FormatAuto, " auto ": FormatAuto} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("expected an error for csv")
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, []byte(sampleIVTFF), 0o644); err != nil {
		t.Fatal(err)
	}
	lr, err := Open(path, FormatAuto)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = lr.Close() })

	if got := len(readAll(t, lr)); got != 4 {
		t.Errorf("expected 4 lines from file, got %d", got)
	}

	if _, err = Open(filepath.Join(t.TempDir(), "missing.txt"), FormatPlain); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	var sb strings.Builder

	n, err := Extract(ctx, NewIVTFFReader(strings.NewReader(sampleIVTFF)), &sb, 2)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 lines written, got %d", n)
	}
	if got := strings.Count(sb.String(), "\n"); got != 2 {
		t.Errorf("expected 2 newlines, got %d", got)
	}

	sb.Reset()
	n, err = Extract(ctx, NewIVTFFReader(strings.NewReader(sampleIVTFF)), &sb, 0)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if n != 4 {
		t.Errorf("expected every line without a cap, got %d", n)
	}
	if !strings.HasSuffix(sb.String(), "daiin sheey\n") {
		t.Errorf("unexpected extract output: %q", sb.String())
	}
}
