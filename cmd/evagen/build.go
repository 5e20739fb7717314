package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/corpus"
	"github.com/CTAG07/evagen/pkg/markov"
)

func buildCmd() *cli.Command {
	var (
		corpusPath string
		format     string
		maxLines   int
		modelName  string
		outPath    string
	)

	return &cli.Command{
		Name:  "build",
		Usage: "Build a bigram model from a corpus and store it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"ivtff"},
				Usage:       "IVTFF transcription or clean text file",
				Required:    true,
				Destination: &corpusPath,
			},
			formatFlag(&format),
			maxLinesFlag(&maxLines),
			modelNameFlag(&modelName),
			&cli.StringFlag{
				Name:        "out",
				Usage:       "write the model as JSON to this file instead of the database",
				Destination: &outPath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyBuildConfig(cmd, appConfig, &maxLines)

			m, err := buildModel(ctx, corpusPath, format, maxLines)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if outPath != "" {
				var buf bytes.Buffer
				if err = markov.WriteJSON(&buf, m); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if err = writeFile(outPath, &buf); err != nil {
					return cli.Exit(fmt.Sprintf("error: write model: %v", err), 1)
				}
			} else {
				_, store, closeStore, err := openStore(appConfig)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				defer closeStore()
				if err = store.Save(ctx, modelName, m); err != nil {
					return cli.Exit(fmt.Sprintf("error: save model: %v", err), 1)
				}
			}

			stats := m.Stats()
			fmt.Printf("model %s: %d from-states, %d transitions, %d starters\n",
				modelName, stats.FromStates, stats.Transitions, stats.Starters)
			return nil
		},
	}
}

func buildModel(ctx context.Context, path, format string, maxLines int) (*markov.Model, error) {
	f, err := corpus.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	src, err := corpus.Open(path, f)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	builder := markov.NewBuilder(markov.WithMaxLines(maxLines))
	builder.SetLogger(logger)
	return builder.Build(ctx, src)
}
