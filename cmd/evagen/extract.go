package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/corpus"
	"github.com/CTAG07/evagen/pkg/markov"
)

func extractCmd() *cli.Command {
	var (
		ivtffPath string
		outPath   string
		maxLines  int
	)

	return &cli.Command{
		Name:  "extract",
		Usage: "Extract a clean reference corpus from an IVTFF transcription",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "ivtff",
				Usage:       "IVTFF transcription file",
				Required:    true,
				Destination: &ivtffPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Usage:       "output text file",
				Required:    true,
				Destination: &outPath,
			},
			&cli.IntFlag{
				Name:        "max-lines",
				Usage:       "lines to write (0 = all)",
				Value:       markov.DefaultMaxLines,
				Destination: &maxLines,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			src, err := corpus.Open(ivtffPath, corpus.FormatIVTFF)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = src.Close() }()

			var buf bytes.Buffer
			n, err := corpus.Extract(ctx, src, &buf, maxLines)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err = writeFile(outPath, &buf); err != nil {
				return cli.Exit(fmt.Sprintf("error: write %s: %v", outPath, err), 1)
			}
			logger.InfoContext(ctx, "Reference extracted", "path", outPath, "lines", n)
			fmt.Printf("wrote %d lines to %s\n", n, outPath)
			return nil
		},
	}
}
