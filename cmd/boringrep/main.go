// Command boringrep is a headless text-mode driver for the search engine.
// It stands in for an interactive GUI, giving the engine a process to run
// inside and a place to print results.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Easimer/boringrep/internal/bgconfig"
	"github.com/Easimer/boringrep/internal/engine"
)

func main() {
	app := &cli.App{
		Name:  "boringrep",
		Usage: "recursively search file contents by regex",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "filename pattern (regex, matched against basename)",
				Value:   ".*",
			},
			&cli.StringFlag{
				Name:    "pattern",
				Aliases: []string{"p"},
				Usage:   "content pattern (regex); empty means enumerate filenames only",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "match worker count (0 = engine default)",
			},
		},
		Args:      true,
		ArgsUsage: "<root>",
		Action:    run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "boringrep:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	root := c.Args().First()
	if root == "" {
		root = "."
	}

	cfg, err := bgconfig.Load(root)
	if err != nil {
		fmt.Fprintln(os.Stderr, "boringrep: warning:", err)
	}

	workers := c.Int("workers")
	if !c.IsSet("workers") {
		workers = cfg.Workers
	}

	name := c.String("name")
	if !c.IsSet("name") && cfg.Name != "" {
		name = cfg.Name
	}

	ctl := engine.NewWithOptions(engine.Options{
		Workers:         workers,
		InputsCapacity:  cfg.InputsCapacity,
		ResultsCapacity: cfg.ResultsCapacity,
		ChunkSize:       cfg.ChunkSize,
	})
	ctl.PutRequest(engine.GrepRequest{
		PathRoot:        root,
		PatternFilename: name,
		PatternContent:  c.String("pattern"),
	})

	return pollUntilTerminal(ctl)
}

// pollUntilTerminal mimics what an interactive frontend would do on a
// render tick: call GetCurrentState, discard Aborted states, and read the
// head state until it reaches a terminal status.
func pollUntilTerminal(ctl *engine.Controller) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		state := ctl.GetCurrentState()
		if state == nil {
			continue
		}

		if state.Status() == engine.Aborted {
			ctl.DiscardOldestState()
			continue
		}

		if state.Status() == engine.Pending {
			continue
		}

		return report(state)
	}

	return nil
}

func report(state *engine.RequestState) error {
	switch state.Status() {
	case engine.BadFilenamePattern:
		return fmt.Errorf("bad filename pattern")
	case engine.BadPattern:
		return fmt.Errorf("bad content pattern")
	case engine.Failure:
		return fmt.Errorf("search failed")
	}

	for _, f := range state.Files() {
		if len(f.Matches) == 0 {
			fmt.Println(f.Path)
			continue
		}
		for _, m := range f.Matches {
			fmt.Printf("%s:%d:%d: [%d,%d)\n", f.Path, m.IdxLine+1, m.IdxColumn+1, m.OffStart, m.OffEnd)
		}
	}

	fmt.Fprintf(os.Stderr, "boringrep: %s in %s\n", state.Status(), state.Duration())
	return nil
}
