package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/CTAG07/evagen/pkg/markov"
)

func modelsCmd() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "Manage models stored in the database",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored models",
				Action: withStore(listModels),
			},
			{
				Name:   "stats",
				Usage:  "Show per-model statistics",
				Action: withStore(modelStats),
			},
			{
				Name:      "rm",
				Usage:     "Remove a stored model",
				ArgsUsage: "NAME",
				Action:    withStore(removeModel),
			},
			exportModelCmd(),
			importModelCmd(),
		},
	}
}

type storeAction func(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error

// withStore opens the configured store around a subcommand action.
func withStore(action storeAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		_, store, closeStore, err := openStore(appConfig)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}
		defer closeStore()
		return action(ctx, cmd, store)
	}
}

func listModels(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error {
	models, err := store.List(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCREATED")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func modelStats(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFROM STATES\tTRANSITIONS\tSTARTERS")
	for _, m := range stats.Models {
		s := stats.Stats[m.Name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", m.Name, s.FromStates, s.Transitions, s.Starters)
	}
	return tw.Flush()
}

func removeModel(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error {
	name := cmd.Args().First()
	if name == "" {
		return cli.Exit("usage: evagen models rm NAME", 2)
	}
	if err := store.Remove(ctx, name); err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	fmt.Fprintln(cmd.Root().Writer, "removed", name)
	return nil
}

func exportModelCmd() *cli.Command {
	var outPath string
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a stored model as JSON",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)", Destination: &outPath},
		},
		Action: withStore(func(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error {
			name := cmd.Args().First()
			if name == "" {
				return cli.Exit("usage: evagen models export NAME", 2)
			}
			m, err := store.Load(ctx, name)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			var buf bytes.Buffer
			if err = markov.WriteJSON(&buf, m); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if outPath == "" {
				_, err = buf.WriteTo(cmd.Root().Writer)
				return err
			}
			return writeFile(outPath, &buf)
		}),
	}
}

func importModelCmd() *cli.Command {
	var name string
	return &cli.Command{
		Name:      "import",
		Usage:     "Store a model read from a JSON file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			modelNameFlag(&name),
		},
		Action: withStore(func(ctx context.Context, cmd *cli.Command, store *markov.SQLiteStore) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("usage: evagen models import [--model NAME] FILE", 2)
			}
			f, err := os.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			defer func() { _ = f.Close() }()
			m, err := markov.ReadJSON(f)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err = store.Save(ctx, name, m); err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			fmt.Fprintln(cmd.Root().Writer, "imported", name)
			return nil
		}),
	}
}
