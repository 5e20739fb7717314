package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// DefaultMaxLines is the number of corpus lines a Builder reads by default.
const DefaultMaxLines = 20000

// counter accumulates occurrence counts in first-seen order.
type counter struct {
	keys   []string
	counts map[string]int
	total  int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key]++
	c.total++
}

// distribution divides every count by the total. An empty counter yields an
// empty distribution.
func (c *counter) distribution() *Distribution {
	d := newDistribution(len(c.keys))
	if c.total == 0 {
		return d
	}
	total := float64(c.total)
	for _, k := range c.keys {
		d.set(k, float64(c.counts[k])/total)
	}
	return d
}

// Builder turns a corpus into a Model.
type Builder struct {
	maxLines int
	logger   *slog.Logger
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithMaxLines sets how many corpus lines are read before building stops.
// Only the first n lines are used; a value of zero or less reads the whole
// source. Default: DefaultMaxLines.
func WithMaxLines(n int) BuildOption {
	return func(b *Builder) { b.maxLines = n }
}

// NewBuilder creates a Builder with default settings, which can be overridden
// by providing one or more BuildOption functions.
func NewBuilder(opts ...BuildOption) *Builder {
	b := &Builder{
		maxLines: DefaultMaxLines,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetLogger sets the logger for the Builder. By default, all logs are discarded.
func (b *Builder) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Build reads lines from src until the line cap or the end of the source and
// returns the resulting Model. Every word of two or more letters is counted
// as one starter pair and as the transitions of ^word$. Lines without such
// words are skipped.
func (b *Builder) Build(ctx context.Context, src LineSource) (*Model, error) {
	// ctxCheckInterval is how many lines are read between cancellation checks.
	const ctxCheckInterval = 1024

	var (
		fromOrder []string
		trans     = make(map[string]*counter)
		starters  = newCounter()
		lines     int
		words     int64
	)

	for b.maxLines <= 0 || lines < b.maxLines {
		if lines%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("corpus read error: %w", err)
		}
		lines++

		for _, w := range SplitWords(line) {
			words++
			starters.add(w[:2])

			s := StartMarker + w + EndMarker
			for i := 0; i+1 < len(s); i++ {
				a, next := s[i:i+1], s[i+1:i+2]
				c, ok := trans[a]
				if !ok {
					c = newCounter()
					trans[a] = c
					fromOrder = append(fromOrder, a)
				}
				c.add(next)
			}
		}
	}

	transitions := make([]Transition, 0, len(fromOrder))
	for _, a := range fromOrder {
		transitions = append(transitions, Transition{From: a, Next: trans[a].distribution()})
	}
	m := NewModel(starters.distribution(), transitions...)

	stats := m.Stats()
	b.logger.InfoContext(ctx, "Model built",
		slog.Int("lines_read", lines),
		slog.Int64("words_counted", words),
		slog.Int("from_states", stats.FromStates),
		slog.Int("transitions", stats.Transitions),
		slog.Int("starters", stats.Starters),
	)
	return m, nil
}
