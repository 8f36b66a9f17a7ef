package engine

import "github.com/Easimer/boringrep/internal/pipe"

// runAggregator is the single consumer of the results queue: it drains
// bundles, appends them to state, and declares the request Finished once
// every worker's terminal token has been observed. It never overrides a
// status already moved off Pending (e.g. Aborted on supersession) —
// trySetTerminal only succeeds once, from Pending.
func runAggregator(state *RequestState, results *pipe.Pipe[*FileMatches], numWorkers int, done chan<- struct{}) {
	remaining := numWorkers

	for remaining > 0 {
		bundle, ok := results.PopBlocking()
		if !ok {
			remaining--
			continue
		}
		state.appendFile(bundle)
	}

	state.trySetTerminal(Finished)
	close(done)
}
