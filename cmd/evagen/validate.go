package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/card"
)

func validateCmd() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check card JSONL files against the card schema",
		ArgsUsage: "FILE...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				return cli.Exit("usage: evagen validate cards/file.jsonl", 2)
			}
			for _, path := range paths {
				n, err := validateFile(path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("FAIL: %s: %v", path, err), 1)
				}
				logger.DebugContext(ctx, "Cards validated", "path", path, "cards", n)
				fmt.Println("OK:", path)
			}
			return nil
		},
	}
}

func validateFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	return card.ValidateJSONL(f)
}
