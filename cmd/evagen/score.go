package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/similarity"
)

func scoreCmd() *cli.Command {
	var refPath, genPath string

	return &cli.Command{
		Name:  "score",
		Usage: "Score the similarity of generated text to a reference corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ref", Usage: "reference corpus text", Required: true, Destination: &refPath},
			&cli.StringFlag{Name: "gen", Usage: "generated corpus text", Required: true, Destination: &genPath},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := os.Open(refPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = ref.Close() }()
			gen, err := os.Open(genPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = gen.Close() }()

			scores, err := similarity.ScoreReaders(ref, gen)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			_, err = scores.WriteTo(os.Stdout)
			return err
		},
	}
}
