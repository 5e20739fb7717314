package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/markov"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSource struct{ lines []string }

func (s *lineSource) Next() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func testCards(n int) []*card.Card {
	cards := make([]*card.Card, n)
	for i := range cards {
		cards[i] = card.New(card.Map(map[string]card.Value{
			"id":             card.String(fmt.Sprintf("C-%03d", i)),
			"domain":         card.String("herbal"),
			"evidence_latin": card.String(fmt.Sprintf("herba numero %d", i)),
		}))
	}
	return cards
}

func TestGenerateAllMatchesSequential(t *testing.T) {
	src := &lineSource{lines: []string{
		"qokeedy qokedy shedy chedy daiin",
		"okaiin chol chor shol cthy dar",
		"qotedy otedy ol shey qokaiin",
	}}
	m, err := markov.NewBuilder().Build(context.Background(), src)
	require.NoError(t, err)

	cards := testCards(64)
	for _, workers := range []int{0, 1, 3, 16, 100} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			got, err := GenerateAll(context.Background(), m, Request{
				Cards:   cards,
				Stream:  markov.StreamB,
				Words:   6,
				Workers: workers,
			})
			require.NoError(t, err)
			require.Len(t, got, len(cards))

			for i, c := range cards {
				want, err := m.GenerateFromCard(c, markov.StreamB, 6)
				require.NoError(t, err)
				assert.Equal(t, want, got[i], "card %d", i)
			}
		})
	}
}

func TestGenerateAllEmpty(t *testing.T) {
	got, err := GenerateAll(context.Background(), markov.NewModel(nil), Request{Words: 3})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// failingGenerator fails for the cards whose id is listed.
type failingGenerator struct {
	fail map[string]bool
}

func (g failingGenerator) GenerateFromCard(c *card.Card, _ markov.Stream, _ int) (string, error) {
	if g.fail[c.ID()] {
		return "", errors.New("cannot generate " + c.ID())
	}
	return strings.ToLower(c.ID()), nil
}

func TestGenerateAllError(t *testing.T) {
	g := failingGenerator{fail: map[string]bool{"C-005": true}}

	_, err := GenerateAll(context.Background(), g, Request{Cards: testCards(20), Workers: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card 5 (C-005)")

	_, err = GenerateAll(context.Background(), markov.NewModel(nil), Request{Cards: testCards(3), Words: 2, Workers: 2})
	assert.ErrorIs(t, err, markov.ErrEmptyModel)
}

func TestGenerateAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := GenerateAll(ctx, failingGenerator{}, Request{Cards: testCards(50), Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
