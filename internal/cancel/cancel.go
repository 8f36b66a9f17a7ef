// Package cancel provides a shared, per-request cancellation flag: a
// single atomic "stop soon" bit, checked cooperatively at specific points
// by workers and the path enumerator. It is deliberately smaller than
// context.Context — there is no deadline or value bag to carry.
package cancel

import "sync/atomic"

// Flag is a relaxed-ordering cancellation signal backed by atomic.Bool,
// safe for concurrent Set/IsSet from any number of goroutines.
type Flag struct {
	v atomic.Bool
}

// Set raises the flag. Idempotent.
func (f *Flag) Set() {
	f.v.Store(true)
}

// IsSet reports whether the flag has been raised. Observation is
// eventually consistent: a reader may still act once or twice after Set
// returns elsewhere, which every caller in this module tolerates.
func (f *Flag) IsSet() bool {
	return f.v.Load()
}
