package engine

import (
	"sync"

	"github.com/Easimer/boringrep/internal/cancel"
	"github.com/Easimer/boringrep/internal/pipe"
	"github.com/Easimer/boringrep/internal/repat"
	"github.com/Easimer/boringrep/internal/walk"
)

// Controller owns the list of request states, accepts new requests,
// supersedes the in-flight one, and orchestrates the path enumerator,
// match worker pool, and result aggregator for whichever request is
// currently running.
//
// A *Controller is the handle a frontend polls: PutRequest submits work,
// GetCurrentState/DiscardOldestState read results back, and Exit tears
// the controller down.
type Controller struct {
	workers         int
	inputsCapacity  int
	resultsCapacity int
	chunkSize       int

	mu            sync.Mutex
	states        []*RequestState
	runningState  *RequestState
	runningCancel *cancel.Flag
	wg            sync.WaitGroup

	shuttingDown bool
}

// Options configures a Controller beyond its worker count: the capacity
// of the inputs and results pipes (0 means unbounded, matching the
// unbounded design of the pipe type's zero value) and the enumerator's
// flush batch size (0 means a batch size equal to the worker count,
// [Enumerate]'s historical default).
type Options struct {
	Workers         int
	InputsCapacity  int
	ResultsCapacity int
	ChunkSize       int
}

// New returns a Controller with the given Match Worker Pool size and
// unbounded inputs/results pipes. workers <= 0 uses [DefaultWorkers].
func New(workers int) *Controller {
	return NewWithOptions(Options{Workers: workers})
}

// NewWithOptions returns a Controller configured by opts. opts.Workers <=
// 0 uses [DefaultWorkers]; opts.ChunkSize <= 0 uses opts.Workers (after
// defaulting) as the enumerator's flush batch size.
func NewWithOptions(opts Options) *Controller {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = workers
	}
	return &Controller{
		workers:         workers,
		inputsCapacity:  opts.InputsCapacity,
		resultsCapacity: opts.ResultsCapacity,
		chunkSize:       chunkSize,
	}
}

// PutRequest enqueues req. If a request is currently running, its status
// is moved to Aborted and its cancellation flag raised; PutRequest does
// not wait for that superseded run to actually stop.
func (c *Controller) PutRequest(req GrepRequest) {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return
	}

	if c.runningCancel != nil {
		c.runningCancel.Set()
		c.runningState.trySetTerminal(Aborted)
	}

	state := newRequestState()
	c.states = append(c.states, state)

	cancelFlag := &cancel.Flag{}
	c.runningState = state
	c.runningCancel = cancelFlag
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(req, state, cancelFlag)

		c.mu.Lock()
		if c.runningState == state {
			c.runningState = nil
			c.runningCancel = nil
		}
		c.mu.Unlock()
	}()
}

// GetCurrentState returns the oldest non-discarded request's state, or nil
// if none exists.
func (c *Controller) GetCurrentState() *RequestState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.states) == 0 {
		return nil
	}
	return c.states[0]
}

// DiscardOldestState drops the oldest request state and releases every
// byte-view mapping it holds.
func (c *Controller) DiscardOldestState() {
	c.mu.Lock()
	if len(c.states) == 0 {
		c.mu.Unlock()
		return
	}
	oldest := c.states[0]
	c.states = c.states[1:]
	c.mu.Unlock()

	oldest.discard()
}

// Exit signals process shutdown: it raises the in-flight request's
// cancellation flag (if any), the same mechanism a superseding request
// uses, and refuses further PutRequest calls. It blocks until the
// currently running request's orchestration goroutine has returned.
func (c *Controller) Exit() {
	c.mu.Lock()
	c.shuttingDown = true
	if c.runningCancel != nil {
		c.runningCancel.Set()
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// run orchestrates one request end to end: compile both patterns, then
// either the enumerate-only path (no content pattern given) or the full
// path-enumerator + match-worker-pool + result-aggregator pipeline.
func (c *Controller) run(req GrepRequest, state *RequestState, cancelFlag *cancel.Flag) {
	namePattern, err := repat.Compile(req.PatternFilename)
	if err != nil {
		state.trySetTerminal(BadFilenamePattern)
		return
	}

	if req.PatternContent == "" {
		walk.EnumerateOnly(req.PathRoot, namePattern, cancelFlag, func(path string) {
			state.appendFile(&FileMatches{Path: path})
		})
		state.trySetTerminal(Finished)
		return
	}

	contentPattern, err := repat.Compile(req.PatternContent)
	if err != nil {
		state.trySetTerminal(BadPattern)
		return
	}

	inputs := pipe.NewBounded[string](c.inputsCapacity)
	results := pipe.NewBounded[*FileMatches](c.resultsCapacity)

	var workersWg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		workersWg.Add(1)
		go func() {
			defer workersWg.Done()
			runWorker(contentPattern, inputs, results, cancelFlag)
		}()
	}

	done := make(chan struct{})
	go runAggregator(state, results, c.workers, done)

	walk.Enumerate(req.PathRoot, namePattern, inputs, c.workers, c.chunkSize, cancelFlag)

	<-done
	workersWg.Wait()
}
