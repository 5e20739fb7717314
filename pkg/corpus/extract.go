package corpus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Extract copies at most maxLines clean lines from src to w, one per line,
// and returns how many were written. A maxLines of zero or less copies
// everything. The result is the reference text the similarity scorer
// compares generated output against.
func Extract(ctx context.Context, src LineReader, w io.Writer, maxLines int) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for maxLines <= 0 || n < maxLines {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		line, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return n, fmt.Errorf("corpus read error: %w", err)
		}
		if _, err = bw.WriteString(line); err != nil {
			return n, err
		}
		if err = bw.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}
