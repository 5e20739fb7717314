// Package experiment runs the end-to-end demo: build or load a model,
// generate lines from cards under a seed mode, and score them against a
// reference corpus.
package experiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/CTAG07/evagen/pkg/batch"
	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/corpus"
	"github.com/CTAG07/evagen/pkg/markov"
	"github.com/CTAG07/evagen/pkg/similarity"
	"github.com/google/uuid"
	"github.com/natefinch/atomic"
)

const (
	// DefaultModelName is used when a Plan names no model.
	DefaultModelName = "markov_model"
	// DefaultLinesPerCard is used when a Plan leaves LinesPerCard at zero.
	DefaultLinesPerCard = 5
	// DefaultWords is used when a Plan leaves Words at zero.
	DefaultWords = 8
)

// Plan describes one run.
type Plan struct {
	CorpusPath    string        // Corpus to build from when the model is not stored yet.
	CorpusFormat  corpus.Format // Empty means auto-detect.
	ReferencePath string        // Clean reference text to score against.
	ModelName     string
	MaxLines      int // Builder line cap; zero means markov.DefaultMaxLines.
	Cards         []*card.Card
	Stream        markov.Stream
	SeedMode      card.SeedMode
	LinesPerCard  int
	Words         int
	OutDir        string
}

// OutputName is the file name generated lines are written to.
func (p Plan) OutputName() string {
	return fmt.Sprintf("gen_stream%s_%s.txt", p.Stream, p.SeedMode)
}

func (p *Plan) applyDefaults() error {
	if p.ModelName == "" {
		p.ModelName = DefaultModelName
	}
	if p.CorpusFormat == "" {
		p.CorpusFormat = corpus.FormatAuto
	}
	if p.MaxLines == 0 {
		p.MaxLines = markov.DefaultMaxLines
	}
	if p.LinesPerCard == 0 {
		p.LinesPerCard = DefaultLinesPerCard
	}
	if p.Words == 0 {
		p.Words = DefaultWords
	}
	if p.Stream == "" {
		p.Stream = markov.StreamA
	}

	stream, err := markov.ParseStream(string(p.Stream))
	if err != nil {
		return err
	}
	p.Stream = stream
	mode, err := card.ParseSeedMode(string(p.SeedMode))
	if err != nil {
		return err
	}
	p.SeedMode = mode
	switch {
	case p.LinesPerCard < 0:
		return fmt.Errorf("lines per card must not be negative, got %d", p.LinesPerCard)
	case p.Words < 0:
		return markov.ErrInvalidWordCount
	case p.ReferencePath == "":
		return errors.New("a reference path is required")
	case p.OutDir == "":
		return errors.New("an output directory is required")
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	ID         string            `json:"id"`
	Model      string            `json:"model"`
	Built      bool              `json:"built"` // The model was built from the corpus during this run.
	Stream     markov.Stream     `json:"stream"`
	SeedMode   card.SeedMode     `json:"seed_mode"`
	Lines      int               `json:"lines"`
	OutputPath string            `json:"output_path"`
	Scores     similarity.Scores `json:"scores"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Runner executes Plans.
type Runner struct {
	Store   markov.Store
	Runs    *RunLog      // Optional; finished runs are recorded when set.
	Logger  *slog.Logger // Optional; logs are discarded when nil.
	Workers int          // Generation workers; zero or less means one per CPU.
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

// Run executes plan and returns its scores.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Result, error) {
	if err := plan.applyDefaults(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	logger := r.logger()
	res := &Result{
		ID:        uuid.NewString(),
		Model:     plan.ModelName,
		Stream:    plan.Stream,
		SeedMode:  plan.SeedMode,
		StartedAt: time.Now().UTC(),
	}

	model, built, err := r.model(ctx, plan)
	if err != nil {
		return nil, err
	}
	res.Built = built

	cards := make([]*card.Card, len(plan.Cards))
	for i, c := range plan.Cards {
		cards[i] = plan.SeedMode.Apply(c)
	}
	lines, err := batch.GenerateAll(ctx, model, batch.Request{
		Cards:   cards,
		Stream:  plan.Stream,
		Words:   plan.Words,
		Workers: r.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	var out bytes.Buffer
	for _, line := range lines {
		// The generator is deterministic, so every repeat of a card is the same line.
		for range plan.LinesPerCard {
			out.WriteString(line)
			out.WriteByte('\n')
			res.Lines++
		}
	}
	if err = os.MkdirAll(plan.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	res.OutputPath = filepath.Join(plan.OutDir, plan.OutputName())
	if err = atomic.WriteFile(res.OutputPath, bytes.NewReader(out.Bytes())); err != nil {
		return nil, fmt.Errorf("could not write generated lines: %w", err)
	}
	logger.InfoContext(ctx, "Lines generated",
		slog.String("path", res.OutputPath),
		slog.Int("cards", len(cards)),
		slog.Int("lines", res.Lines),
	)

	ref, err := os.Open(plan.ReferencePath)
	if err != nil {
		return nil, fmt.Errorf("could not open reference text: %w", err)
	}
	defer func() { _ = ref.Close() }()
	if res.Scores, err = similarity.ScoreReaders(ref, &out); err != nil {
		return nil, err
	}
	res.FinishedAt = time.Now().UTC()

	logger.InfoContext(ctx, "Run scored",
		slog.String("run_id", res.ID),
		slog.String("stream", string(res.Stream)),
		slog.String("seed_mode", string(res.SeedMode)),
		slog.Float64("js_sim_unigram", res.Scores.JSSimUnigram),
		slog.Float64("js_sim_bigram", res.Scores.JSSimBigram),
		slog.Float64("cosine_3gram", res.Scores.Cosine3Gram),
	)

	if r.Runs != nil {
		if err = r.Runs.Record(ctx, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// model loads the plan's model, building and saving it from the corpus when
// the store does not have it.
func (r *Runner) model(ctx context.Context, plan Plan) (*markov.Model, bool, error) {
	m, err := r.Store.Load(ctx, plan.ModelName)
	if err == nil {
		r.logger().DebugContext(ctx, "Model loaded", slog.String("model", plan.ModelName))
		return m, false, nil
	}
	if !errors.Is(err, markov.ErrModelNotFound) {
		return nil, false, fmt.Errorf("could not load model: %w", err)
	}
	if plan.CorpusPath == "" {
		return nil, false, fmt.Errorf("model %q is not stored and no corpus was given: %w", plan.ModelName, err)
	}

	src, err := corpus.Open(plan.CorpusPath, plan.CorpusFormat)
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = src.Close() }()

	builder := markov.NewBuilder(markov.WithMaxLines(plan.MaxLines))
	builder.SetLogger(r.logger())
	if m, err = builder.Build(ctx, src); err != nil {
		return nil, false, fmt.Errorf("could not build model: %w", err)
	}
	if err = r.Store.Save(ctx, plan.ModelName, m); err != nil {
		return nil, false, fmt.Errorf("could not save model: %w", err)
	}
	return m, true, nil
}
