package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/wordseek/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/wordseek/pkg/metrics"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Index PATHs, run one query and print the ranked locations",
		ArgsUsage: "QUERY PATH...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print the full result as JSON",
			},
			&cli.BoolFlag{
				Name:  "scores",
				Usage: "Append each match's score",
			},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("search: missing QUERY", 2)
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	m := metrics.NewUnregistered()
	engine, err := buildIndex(c.Context, cfg, m, c.Args().Tail(), nil)
	if err != nil {
		return err
	}

	res, err := executor.New(engine, m).Execute(c.Context, parser.Parse(c.Args().First()), searchOptions(cfg))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	for _, hit := range res.Results {
		if c.Bool("scores") {
			fmt.Printf("%s\t%d\n", hit.Location, hit.Score)
			continue
		}
		fmt.Println(hit.Location)
	}
	return nil
}
