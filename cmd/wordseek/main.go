// Command wordseek indexes source files in memory and answers fuzzy
// multi-token queries against them, interactively, one-shot, or over HTTP.
//
// Usage:
//
//	wordseek [global flags] PATH...             interactive prompt
//	wordseek [global flags] search QUERY PATH...
//	wordseek [global flags] serve PATH...
//	wordseek [global flags] analytics
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var Version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wordseek: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "wordseek",
		Usage:                  "Find token sequences that occur close together in source files",
		Version:                Version,
		UseShortOptionHandling: true,
		ArgsUsage:              "PATH...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"WS_CONFIG"},
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Only index files under directory arguments matching these globs (e.g. --include '**/*.go')",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip files and directories matching these globs (e.g. --exclude '**/testdata')",
			},
			&cli.StringFlag{
				Name:    "line-span",
				Aliases: []string{"s"},
				Usage:   "Max lines between consecutive matched tokens, or 'none'",
			},
			&cli.BoolFlag{
				Name:    "backtrack",
				Aliases: []string{"b"},
				Usage:   "Use exhaustive alignment instead of greedy",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Max results per query (0 = all)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "text or json",
			},
		},
		Action: runShell,
		Commands: []*cli.Command{
			searchCommand(),
			serveCommand(),
			analyticsCommand(),
		},
	}
}
