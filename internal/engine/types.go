// Package engine implements a cancellable, multi-producer/multi-consumer
// file-content search pipeline. It ties together internal/pipe (the
// shutdown-aware queue), internal/walk (filesystem traversal),
// internal/repat (regex compilation), internal/mapio (memory-mapped file
// access), internal/lineindex (line/column lookup), and internal/cancel
// (cooperative cancellation) into a worker pool, result aggregator, and
// request controller.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Easimer/boringrep/internal/lineindex"
	"github.com/Easimer/boringrep/internal/mapio"
)

// Status is a RequestState's terminal-or-pending classification.
type Status int32

const (
	Pending Status = iota
	Finished
	Aborted
	BadPattern
	BadFilenamePattern
	Failure
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Finished:
		return "Finished"
	case Aborted:
		return "Aborted"
	case BadPattern:
		return "BadPattern"
	case BadFilenamePattern:
		return "BadFilenamePattern"
	case Failure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Match is one content match within a file: a byte span plus the
// line/column coordinates derived from the file's line index.
type Match struct {
	OffStart, OffEnd   int
	IdxLine, IdxColumn int
}

// FileMatches is the per-file result bundle a match worker assembles and
// the result aggregator appends to a RequestState.
//
// A FileMatches that holds a non-nil view keeps that mapping's reference
// count above zero until Close is called — normally by
// [Controller.DiscardOldestState] once a consumer is done with the
// request.
type FileMatches struct {
	Path     string
	Matches  []Match
	LineInfo []lineindex.Line

	view *mapio.View

	mu      sync.Mutex
	preview map[int]string
}

// Preview decodes and memoizes the text of one line, so a caller that
// renders the same line repeatedly only pays the decode cost once.
// lineIdx must be a valid index into LineInfo; results for enumerate-only
// matches (no backing view) are always "".
func (f *FileMatches) Preview(lineIdx int) string {
	if f.view == nil || lineIdx < 0 || lineIdx >= len(f.LineInfo) {
		return ""
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.preview == nil {
		f.preview = make(map[int]string)
	}
	if s, ok := f.preview[lineIdx]; ok {
		return s
	}

	line := f.LineInfo[lineIdx]
	s := string(f.view.SubRange(line.OffStart, line.OffEnd))
	f.preview[lineIdx] = s
	return s
}

// View exposes the byte-view handle backing this file's match, so a caller
// can request an arbitrary sub-range for rendering. It is nil for
// enumerate-only results.
func (f *FileMatches) View() *mapio.View {
	return f.view
}

// close releases the mapping this FileMatches holds, if any. Called once
// by [Controller.DiscardOldestState] when the owning RequestState is
// discarded.
func (f *FileMatches) close() {
	if f.view != nil {
		f.view.Close()
	}
}

// RequestState is the externally visible state of one in-flight or
// completed request. Once Status leaves Pending it never changes again;
// trySetTerminal enforces that with a single CompareAndSwap.
type RequestState struct {
	status atomic.Int32

	mu    sync.Mutex
	files []*FileMatches

	startedAt  time.Time
	finishedAt time.Time
}

// Duration returns how long this request's orchestration took, valid once
// Status is terminal.
func (s *RequestState) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finishedAt.IsZero() {
		return 0
	}
	return s.finishedAt.Sub(s.startedAt)
}

func newRequestState() *RequestState {
	s := &RequestState{startedAt: time.Now()}
	s.status.Store(int32(Pending))
	return s
}

// Status returns the current status.
func (s *RequestState) Status() Status {
	return Status(s.status.Load())
}

// Files returns a snapshot slice of the files appended so far. Callers
// must not rely on the returned slice being unaffected by later appends
// to other snapshots, but the slice itself, once returned, is never
// mutated in place.
func (s *RequestState) Files() []*FileMatches {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*FileMatches, len(s.files))
	copy(out, s.files)
	return out
}

func (s *RequestState) appendFile(f *FileMatches) {
	s.mu.Lock()
	s.files = append(s.files, f)
	s.mu.Unlock()
}

// trySetTerminal moves status from Pending to to, atomically, and reports
// whether it won the race. The first caller — whichever of the controller
// (supersession/compile failure) or the aggregator (normal completion)
// gets there first — wins; terminal states are sticky thereafter.
func (s *RequestState) trySetTerminal(to Status) bool {
	won := s.status.CompareAndSwap(int32(Pending), int32(to))
	if won {
		s.mu.Lock()
		s.finishedAt = time.Now()
		s.mu.Unlock()
	}
	return won
}

func (s *RequestState) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		f.close()
	}
	s.files = nil
}

// GrepRequest is a single-shot message submitted to a Controller. An
// empty PatternContent means enumerate-only: report matching paths
// without opening or scanning file contents.
type GrepRequest struct {
	PathRoot        string
	PatternFilename string
	PatternContent  string
}

// DefaultWorkers is the default match worker pool size.
const DefaultWorkers = 8
