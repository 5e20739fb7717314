package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/batch"
	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/markov"
)

func generateCmd() *cli.Command {
	var (
		gen       generationFlags
		modelName string
		modelFile string
		modelDir  string
		outPath   string
	)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate EVA-like lines seeded from cards",
		Flags: append(gen.flags(),
			modelNameFlag(&modelName),
			modelDirFlag(&modelDir),
			&cli.StringFlag{
				Name:        "model-file",
				Usage:       "read the model from a JSON file instead of the database",
				Destination: &modelFile,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output file (default stdout)",
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyGenerationConfig(cmd, appConfig, &gen)

			stream, err := markov.ParseStream(gen.stream)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			mode, err := card.ParseSeedMode(gen.seedMode)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if gen.linesPerCard < 0 {
				return cli.Exit("error: --lines-per-card must not be negative", 1)
			}

			m, err := loadModel(ctx, modelName, modelFile, modelDir)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			cards, err := card.ReadGlob(gen.cardsGlob)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			for i, c := range cards {
				cards[i] = mode.Apply(c)
			}

			lines, err := batch.GenerateAll(ctx, m, batch.Request{
				Cards:   cards,
				Stream:  stream,
				Words:   gen.words,
				Workers: gen.workers,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			var buf bytes.Buffer
			for _, line := range lines {
				for range gen.linesPerCard {
					buf.WriteString(line)
					buf.WriteByte('\n')
				}
			}
			logger.InfoContext(ctx, "Lines generated",
				slog.Int("cards", len(cards)),
				slog.Int("lines", len(lines)*gen.linesPerCard),
				slog.String("stream", string(stream)),
				slog.String("seed_mode", string(mode)),
			)

			if outPath == "" {
				_, err = buf.WriteTo(os.Stdout)
				return err
			}
			if err = writeFile(outPath, &buf); err != nil {
				return cli.Exit(fmt.Sprintf("error: write %s: %v", outPath, err), 1)
			}
			return nil
		},
	}
}

// loadModel reads a model from file when one is given, from a FileStore when
// dir is set, and otherwise from the configured database.
func loadModel(ctx context.Context, name, file, dir string) (*markov.Model, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		return markov.ReadJSON(f)
	}
	if dir != "" {
		return markov.FileStore{Dir: dir}.Load(ctx, name)
	}

	_, store, closeStore, err := openStore(appConfig)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return store.Load(ctx, name)
}
