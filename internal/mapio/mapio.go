// Package mapio provides an opaque, reference-counted byte view over a
// file on disk.
//
// A View is handed from a match worker into a result bundle and from
// there into the request state a caller reads; the worker's reference
// transfers rather than being released. The last holder to call Close
// actually releases the OS mapping.
package mapio

import (
	"fmt"
	"sync/atomic"
)

// View is a reference-counted, immutable byte view over a file.
//
// The zero value is not usable; obtain one from [Open]. Data() remains
// valid for as long as any holder has not called Close. Calling Data()
// after the last Close is a programming error; this package does not
// guard against it at runtime.
type View struct {
	path string
	data []byte
	refs *int32
	impl backend
}

// backend is the platform-specific capability behind a View: it owns
// whatever OS resource Data() is backed by and knows how to release it.
// Every platform provides one via a build-tagged file (mapio_unix.go /
// mapio_other.go).
type backend interface {
	release() error
}

var liveMappings atomic.Int64

// Open maps path and returns a View with one reference held by the caller.
// Release it with [View.Close] (or [View.Retain] + an extra Close) once you
// are done; the mapping is only unmapped when the reference count reaches
// zero.
func Open(path string) (*View, error) {
	data, impl, err := openImpl(path)
	if err != nil {
		return nil, &MapError{Path: path, Err: err}
	}

	refs := new(int32)
	*refs = 1
	liveMappings.Add(1)

	return &View{path: path, data: data, refs: refs, impl: impl}, nil
}

// MapError is returned when a file cannot be memory-mapped. This is never
// fatal to a request: the worker that hits it logs and continues to the
// next input.
type MapError struct {
	Path string
	Err  error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("mmap %s: %v", e.Path, e.Err)
}

func (e *MapError) Unwrap() error { return e.Err }

// Data returns the mapped bytes. The returned slice must not be mutated and
// must not be retained past the last Close by any holder.
func (v *View) Data() []byte {
	return v.data
}

// Len returns the length of the mapping.
func (v *View) Len() int {
	return len(v.data)
}

// Path returns the path this view was opened from.
func (v *View) Path() string {
	return v.path
}

// Retain adds one reference and returns v for chaining. Every Retain must
// be matched by exactly one additional Close.
func (v *View) Retain() *View {
	atomic.AddInt32(v.refs, 1)
	return v
}

// Close releases one reference. When the last reference is released, the
// underlying mapping is unmapped.
func (v *View) Close() error {
	if atomic.AddInt32(v.refs, -1) > 0 {
		return nil
	}
	liveMappings.Add(-1)
	return v.impl.release()
}

// LiveMappings reports the number of mappings currently open process-wide
// (reference count > 0). It exists for tests that assert a request's
// mappings are fully released after the state holding them is discarded.
func LiveMappings() int {
	return int(liveMappings.Load())
}

// SubRange returns a copy of v.Data()[start:end], clamped to the view's
// bounds. It is the primitive a preview renderer uses to read a snippet
// without holding the mapping's full backing slice alive past the
// preview string's lifetime.
func (v *View) SubRange(start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(v.data) {
		end = len(v.data)
	}
	if start > end {
		start = end
	}
	out := make([]byte, end-start)
	copy(out, v.data[start:end])
	return out
}
