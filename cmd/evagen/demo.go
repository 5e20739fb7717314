package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/card"
	"github.com/CTAG07/evagen/pkg/corpus"
	"github.com/CTAG07/evagen/pkg/experiment"
	"github.com/CTAG07/evagen/pkg/markov"
)

func demoCmd() *cli.Command {
	var (
		gen        generationFlags
		corpusPath string
		format     string
		refPath    string
		outDir     string
		modelName  string
		modelDir   string
		maxLines   int
	)

	return &cli.Command{
		Name:  "demo",
		Usage: "Build or load a model, generate from cards and score against a reference",
		Flags: append(gen.flags(),
			&cli.StringFlag{
				Name:        "corpus",
				Aliases:     []string{"ivtff"},
				Usage:       "corpus to build the model from when it is not stored yet",
				Destination: &corpusPath,
			},
			formatFlag(&format),
			&cli.StringFlag{
				Name:        "ref",
				Usage:       "clean reference text to score against",
				Required:    true,
				Destination: &refPath,
			},
			&cli.StringFlag{
				Name:        "out-dir",
				Usage:       "directory for generated lines (default <data_dir>/runs/demo)",
				Destination: &outDir,
			},
			modelNameFlag(&modelName),
			modelDirFlag(&modelDir),
			maxLinesFlag(&maxLines),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyGenerationConfig(cmd, appConfig, &gen)
			applyBuildConfig(cmd, appConfig, &maxLines)
			if outDir == "" {
				outDir = filepath.Join(appConfig.DataDir, "runs", "demo")
			}

			f, err := corpus.ParseFormat(format)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			cards, err := card.ReadGlob(gen.cardsGlob)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			db, store, closeStore, err := openStore(appConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer closeStore()
			runs, err := experiment.NewRunLog(db)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			runs.SetLogger(logger)

			runner := &experiment.Runner{
				Store:   modelStore(modelDir, store),
				Runs:    runs,
				Logger:  logger,
				Workers: gen.workers,
			}
			res, err := runner.Run(ctx, experiment.Plan{
				CorpusPath:    corpusPath,
				CorpusFormat:  f,
				ReferencePath: refPath,
				ModelName:     modelName,
				MaxLines:      maxLines,
				Cards:         cards,
				Stream:        markov.Stream(gen.stream),
				SeedMode:      card.SeedMode(gen.seedMode),
				LinesPerCard:  gen.linesPerCard,
				Words:         gen.words,
				OutDir:        outDir,
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if _, err = res.Scores.WriteTo(cmd.Root().Writer); err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, "Generated:", res.OutputPath)
			fmt.Fprintln(cmd.Root().Writer, "Tip: rerun with --seed-mode neutral and compare the scores with 'evagen runs'.")
			return nil
		},
	}
}

// modelStore picks a FileStore when dir is set, otherwise fallback.
func modelStore(dir string, fallback markov.Store) markov.Store {
	if dir == "" {
		return fallback
	}
	return markov.FileStore{Dir: dir}
}
