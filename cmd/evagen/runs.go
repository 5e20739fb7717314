package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/experiment"
)

func runsCmd() *cli.Command {
	var limit int

	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded demo runs, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Usage:       "maximum runs to show (0 = all)",
				Value:       20,
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, _, closeStore, err := openStore(appConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer closeStore()
			runs, err := experiment.NewRunLog(db)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			results, err := runs.List(ctx, limit)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tMODEL\tSTREAM\tSEED MODE\tLINES\tJS UNI\tJS BI\tCOS 3")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.6f\t%.6f\t%.6f\n",
					r.StartedAt.Local().Format(time.DateTime), r.Model, r.Stream, r.SeedMode, r.Lines,
					r.Scores.JSSimUnigram, r.Scores.JSSimBigram, r.Scores.Cosine3Gram)
			}
			return tw.Flush()
		},
	}
}
