package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/markov"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	app := &cli.Command{
		Name:    "evagen",
		Usage:   "Build EVA bigram models, generate card-seeded lines and score them",
		Version: fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Flags:   rootFlags(),
		Before:  setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			buildCmd(),
			extractCmd(),
			generateCmd(),
			scoreCmd(),
			validateCmd(),
			demoCmd(),
			runsCmd(),
			modelsCmd(),
			serveCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := app.Run(ctx, os.Args)
	stop()
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config file and builds the logger before any command runs.
// Flags given on the command line win over the file.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return ctx, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.LogLevel != "" && !cmd.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !cmd.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if databasePath != "" {
		cfg.DatabasePath = databasePath
	}
	appConfig = cfg
	logger = newLogger(os.Stderr, logLevel, logFormat)
	return ctx, nil
}

// openStore opens the configured database and prepares the model tables.
// The returned close function releases both the store and the database.
func openStore(cfg Config) (*sql.DB, *markov.SQLiteStore, func(), error) {
	for _, dir := range []string{cfg.DataDir, filepath.Dir(cfg.DatabasePath)} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	store, err := markov.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("failed to prepare model store: %w", err)
	}
	store.SetLogger(logger)

	closeFn := func() {
		store.Close()
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}
	return db, store, closeFn, nil
}

// writeFile atomically replaces path with the contents of r, creating the
// parent directory when needed.
func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, r)
}
