package engine

import (
	"github.com/Easimer/boringrep/internal/bglog"
	"github.com/Easimer/boringrep/internal/cancel"
	"github.com/Easimer/boringrep/internal/lineindex"
	"github.com/Easimer/boringrep/internal/mapio"
	"github.com/Easimer/boringrep/internal/pipe"
	"github.com/Easimer/boringrep/internal/repat"
)

// runWorker is one match worker. It loops until it observes a shutdown
// token on inputs or the cancellation flag, and always pushes exactly one
// terminal token on results before returning — that invariant, not how
// many input shutdown tokens it happened to consume, is what the result
// aggregator's termination count depends on.
func runWorker(pattern *repat.Pattern, inputs *pipe.Pipe[string], results *pipe.Pipe[*FileMatches], cancelFlag *cancel.Flag) {
	var local []pipe.Item[string]

	for {
		if cancelFlag.IsSet() {
			break
		}

		if len(local) == 0 {
			// Refill up to 2 items under one lock acquisition: real paths are
			// always pushed to the shared queue before any shutdown token, so
			// a batch can never contain a shutdown token followed by a real
			// path.
			local = inputs.PopBatchBlocking(2)
		}

		item := local[0]
		local = local[1:]

		if !item.Ok {
			// A refill may have taken a second shutdown token; hand it back
			// so each worker still consumes exactly one.
			for _, rest := range local {
				if !rest.Ok {
					inputs.PushShutdown()
				}
			}
			break
		}

		processFile(pattern, item.Val, results, cancelFlag)
	}

	results.PushShutdown()
	results.NotifyAll()
}

// processFile maps path, runs pattern over its bytes from offset 0,
// lazily builds the line index on first match, and — if at least one
// match was found — pushes a result bundle onto results.
func processFile(pattern *repat.Pattern, path string, results *pipe.Pipe[*FileMatches], cancelFlag *cancel.Flag) {
	view, err := mapio.Open(path)
	if err != nil {
		bglog.Printf("map failure: %v", err)
		return
	}

	buf := view.Data()
	var lines []lineindex.Line
	var matches []Match
	offset := 0

	for {
		if cancelFlag.IsSet() {
			break
		}

		s, e, ok := pattern.MatchContent(buf, offset)
		if !ok {
			break
		}

		if lines == nil {
			lines = lineindex.Build(buf)
		}

		if cancelFlag.IsSet() {
			break
		}

		idx := lineindex.Lookup(lines, s)
		matches = append(matches, Match{
			OffStart:  s,
			OffEnd:    e,
			IdxLine:   idx,
			IdxColumn: s - lines[idx].OffStart,
		})

		offset = e
	}

	if len(matches) == 0 {
		view.Close()
		return
	}

	results.Push(&FileMatches{Path: path, Matches: matches, LineInfo: lines, view: view})
	results.NotifyAll()
}
