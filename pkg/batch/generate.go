package batch

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/markov"
)

// LineGenerator produces one line for a card. *markov.Model implements it.
type LineGenerator interface {
	GenerateFromCard(c *card.Card, stream markov.Stream, words int) (string, error)
}

// Request describes one batch of generation.
type Request struct {
	Cards   []*card.Card
	Stream  markov.Stream
	Words   int
	Workers int // Zero or less means runtime.NumCPU().
}

// GenerateAll generates one line per card on a worker pool. The result has
// the same order as req.Cards regardless of which worker finished first.
// When several cards fail, the error of the earliest card is returned.
func GenerateAll(ctx context.Context, g LineGenerator, req Request) ([]string, error) {
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(len(req.Cards), 1))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		lines   = make([]string, len(req.Cards))
		mu      sync.Mutex
		failed  = -1
		failErr error
	)

	pool := NewWorkerPool(workers, 0)
	pool.Start(ctx)
	for i, c := range req.Cards {
		err := pool.SubmitContext(ctx, func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			line, err := g.GenerateFromCard(c, req.Stream, req.Words)
			if err != nil {
				mu.Lock()
				if failed < 0 || i < failed {
					failed = i
					failErr = fmt.Errorf("card %d (%s): %w", i, c.ID(), err)
				}
				mu.Unlock()
				cancel()
				return err
			}
			lines[i] = line
			return nil
		})
		if err != nil {
			break
		}
	}
	pool.Close()

	if failErr != nil {
		return nil, failErr
	}
	// Workers stop on cancellation without draining the queue.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
