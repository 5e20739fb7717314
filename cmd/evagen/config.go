package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/CTAG07/evagen/pkg/experiment"
	"github.com/CTAG07/evagen/pkg/markov"
)

// Config is the evagen configuration file (evagen.yaml by default).
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	DataDir       string `yaml:"data_dir"`
	DatabasePath  string `yaml:"database_path"`
	MaxLines      int    `yaml:"max_lines"`
	Words         int    `yaml:"words"`
	LinesPerCard  int    `yaml:"lines_per_card"`
	Stream        string `yaml:"stream"`
	Workers       int    `yaml:"workers"`
	ServerAddress string `yaml:"server_address"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		LogFormat:     "text",
		DataDir:       "./data",
		DatabasePath:  "./data/evagen.db",
		MaxLines:      markov.DefaultMaxLines,
		Words:         experiment.DefaultWords,
		LinesPerCard:  experiment.DefaultLinesPerCard,
		Stream:        string(markov.StreamA),
		Workers:       0,
		ServerAddress: "127.0.0.1:7290",
	}
}

// LoadConfig reads the configuration from a YAML file at the given path.
// If the file doesn't exist, it creates one with default values. Keys missing
// from an existing file keep their defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = yaml.Marshal(config)
			if err != nil {
				return config, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The defaults are still usable without the file.
				_, _ = fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(file, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// applyGenerationConfig applies config file defaults to the generation
// flags of a command when the corresponding flag was not explicitly set.
func applyGenerationConfig(c *cli.Command, cfg Config, g *generationFlags) {
	if cfg.Words != 0 && !c.IsSet("words") {
		g.words = cfg.Words
	}
	if cfg.LinesPerCard != 0 && !c.IsSet("lines-per-card") {
		g.linesPerCard = cfg.LinesPerCard
	}
	if cfg.Stream != "" && !c.IsSet("stream") {
		g.stream = cfg.Stream
	}
	if cfg.Workers != 0 && !c.IsSet("workers") {
		g.workers = cfg.Workers
	}
}

// applyBuildConfig applies config file defaults to the corpus flags.
func applyBuildConfig(c *cli.Command, cfg Config, maxLines *int) {
	if cfg.MaxLines != 0 && !c.IsSet("max-lines") {
		*maxLines = cfg.MaxLines
	}
}

// applyServeConfig applies config file defaults to the serve command.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
