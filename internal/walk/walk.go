// Package walk performs a breadth-first directory traversal: a single
// producer that tests each regular file's basename against a compiled
// filename pattern and pushes accepted paths into a queue, followed by
// exactly one shutdown token per consumer.
//
// Traversal uses plain os.ReadDir; symlinks are followed by default
// rather than skipped, unlike a typical fast-path openat/getdents
// directory scanner.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Easimer/boringrep/internal/bglog"
	"github.com/Easimer/boringrep/internal/cancel"
	"github.com/Easimer/boringrep/internal/pipe"
	"github.com/Easimer/boringrep/internal/repat"
)

// Enumerate walks root breadth-first, pushing the path of every regular
// file (symlinks to regular files included — they are followed) whose
// basename matches namePattern into inputs. After the walk completes it
// pushes exactly numConsumers shutdown tokens.
//
// Paths are flushed into inputs in batches of chunkSize (chunkSize <= 0
// falls back to numConsumers), independent of the shutdown token count —
// a larger chunkSize amortises lock contention on inputs further at the
// cost of coarser-grained backpressure on a bounded inputs pipe.
//
// Enumerate checks cancelFlag between directory pops: once it is set,
// Enumerate stops discovering new paths, flushes the paths it has already
// batched, and still emits the shutdown tokens so blocked consumers
// unblock.
func Enumerate(root string, namePattern *repat.Pattern, inputs *pipe.Pipe[string], numConsumers, chunkSize int, cancelFlag *cancel.Flag) {
	if chunkSize <= 0 {
		chunkSize = numConsumers
	}
	queue := []string{root}
	batch := make([]string, 0, chunkSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		inputs.PushBatchLocked(batch)
		batch = batch[:0]
	}

	for len(queue) > 0 {
		if cancelFlag.IsSet() {
			break
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			bglog.Printf("readdir %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)

			isDir, isRegular := classify(entry, path)
			if isDir {
				queue = append(queue, path)
				continue
			}
			if !isRegular {
				continue
			}

			if namePattern.MatchName([]byte(name)) {
				batch = append(batch, path)
			}

			if len(batch) == chunkSize {
				flush()
			}
		}
	}

	flush()

	for i := 0; i < numConsumers; i++ {
		inputs.PushShutdown()
	}
	inputs.NotifyAll()
}

// EnumerateOnly walks root the same way Enumerate does, but calls yield
// directly instead of going through a queue, for callers that have no
// downstream workers to hand shutdown tokens to.
func EnumerateOnly(root string, namePattern *repat.Pattern, cancelFlag *cancel.Flag, yield func(path string)) {
	queue := []string{root}

	for len(queue) > 0 {
		if cancelFlag.IsSet() {
			return
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			bglog.Printf("readdir %s: %v", dir, err)
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			path := filepath.Join(dir, name)

			isDir, isRegular := classify(entry, path)
			if isDir {
				queue = append(queue, path)
				continue
			}
			if !isRegular {
				continue
			}

			if namePattern.MatchName([]byte(name)) {
				yield(path)
			}
		}
	}
}

// classify reports whether the directory entry (or, if it is a symlink,
// its target) is a directory or a regular file. Symlinks are followed by
// default; a broken symlink or a stat failure is treated as neither and
// skipped silently.
func classify(entry fs.DirEntry, path string) (isDir, isRegular bool) {
	typ := entry.Type()
	if typ&fs.ModeSymlink == 0 {
		return typ.IsDir(), typ.IsRegular()
	}

	st, err := os.Stat(path)
	if err != nil {
		// Broken symlink, or a cycle the OS itself refuses (ELOOP) — skip
		// silently; symlink cycle detection is out of scope.
		return false, false
	}
	return st.IsDir(), st.Mode().IsRegular()
}
