// Package repat wraps the regex engine the search pipeline is built
// against, compiling a pattern string once per request and exposing the
// match primitive the match workers and the path enumerator drive.
//
// Patterns are compiled with github.com/coregx/coregex/meta rather than
// the top-level github.com/coregx/coregex wrapper: meta.Engine exposes
// FindIndicesAt, an offset-aware search that evaluates anchors against
// the true haystack start rather than against a re-sliced buffer, which
// MatchContent uses to step through a buffer without a leading ^
// matching at every resumed offset.
package repat

import (
	"github.com/coregx/coregex/meta"
)

// Pattern is an immutable compiled pattern, safe for concurrent read-only
// use by every match worker of a request.
type Pattern struct {
	engine *meta.Engine
}

// CompileError is returned by [Compile] on a malformed pattern. It maps to
// a controller's BadPattern/BadFilenamePattern terminal status.
type CompileError struct {
	Pattern string
	Err     error
}

func (e *CompileError) Error() string {
	return "compile pattern " + quote(e.Pattern) + ": " + e.Err.Error()
}

func (e *CompileError) Unwrap() error { return e.Err }

func quote(s string) string {
	return "\"" + s + "\""
}

// Compile compiles pattern for later matching. The compiler caches no
// state between calls.
func Compile(pattern string) (*Pattern, error) {
	engine, err := meta.Compile(pattern)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Err: err}
	}
	return &Pattern{engine: engine}, nil
}

// MatchContent finds the next match in buf starting at or after offset.
// Zero-length matches are rejected rather than returned, as with
// PCRE2_NOTEMPTY. Only the whole-match span is returned; capture groups
// are not reported.
//
// FindIndicesAt evaluates anchors against buf's true start and end, so a
// leading ^ never spuriously matches at offset > 0 the way re-slicing the
// buffer would cause. Anchors are not suppressed at the buffer's own
// boundaries (meta.Config has no anchor-suppression flag): ^ can match at
// offset 0 and $ can match at len(buf), so PCRE2_NOTBOL and PCRE2_NOTEOL
// are not enforced. Forward progress and zero-length-match rejection hold
// unconditionally.
func (p *Pattern) MatchContent(buf []byte, offset int) (start, end int, ok bool) {
	for offset <= len(buf) {
		s, e, found := p.engine.FindIndicesAt(buf, offset)
		if !found {
			return 0, 0, false
		}
		if s != e {
			return s, e, true
		}
		// Zero-length match rejected (NOTEMPTY): advance past it and retry.
		offset = s + 1
	}
	return 0, 0, false
}

// MatchName reports whether name matches the pattern anywhere in the
// string, with ordinary (non-forced) anchor semantics: a filename pattern
// is matched against a bare basename with no NOTBOL/NOTEOL treatment, so
// ^/$ behave normally here.
func (p *Pattern) MatchName(name []byte) bool {
	return p.engine.IsMatch(name)
}
