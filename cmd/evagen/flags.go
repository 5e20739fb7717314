package main

import (
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/experiment"
	"github.com/CTAG07/evagen/pkg/markov"
)

var (
	configPath   string
	logLevel     string
	logFormat    string
	databasePath string

	// appConfig and logger are set up by the root command's Before hook.
	appConfig = DefaultConfig()
	logger    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

func rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to the YAML config file (created with defaults when missing)",
			Value:       "evagen.yaml",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.StringFlag{
			Name:        "db",
			Usage:       "SQLite database holding models and runs (overrides database_path)",
			Destination: &databasePath,
		},
	}
}

// generationFlags are shared by every command that generates lines.
type generationFlags struct {
	words        int
	linesPerCard int
	stream       string
	seedMode     string
	workers      int
	cardsGlob    string
}

func (g *generationFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cards",
			Usage:       "glob of card JSONL files",
			Value:       "cards/*.jsonl",
			Destination: &g.cardsGlob,
		},
		&cli.IntFlag{
			Name:        "words",
			Aliases:     []string{"w"},
			Usage:       "words per generated line",
			Value:       experiment.DefaultWords,
			Destination: &g.words,
		},
		&cli.IntFlag{
			Name:        "lines-per-card",
			Usage:       "lines written per card",
			Value:       experiment.DefaultLinesPerCard,
			Destination: &g.linesPerCard,
		},
		&cli.StringFlag{
			Name:        "stream",
			Aliases:     []string{"s"},
			Usage:       "stream bias (A, B)",
			Value:       string(markov.StreamA),
			Destination: &g.stream,
		},
		&cli.StringFlag{
			Name:        "seed-mode",
			Usage:       "seed mode (normal, neutral)",
			Value:       "normal",
			Destination: &g.seedMode,
		},
		&cli.IntFlag{
			Name:        "workers",
			Usage:       "generation workers (0 = one per CPU)",
			Destination: &g.workers,
		},
	}
}

func modelNameFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "model",
		Aliases:     []string{"m"},
		Usage:       "name of the stored model",
		Value:       experiment.DefaultModelName,
		Destination: dst,
	}
}

func modelDirFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "model-dir",
		Usage:       "keep models as <dir>/<name>.json instead of in the database",
		Destination: dst,
	}
}

func maxLinesFlag(dst *int) cli.Flag {
	return &cli.IntFlag{
		Name:        "max-lines",
		Usage:       "corpus lines to read (0 = all)",
		Value:       markov.DefaultMaxLines,
		Destination: dst,
	}
}

func formatFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Usage:       "corpus format (auto, ivtff, plain)",
		Value:       "auto",
		Destination: dst,
	}
}
