//go:build !(linux || (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly)

// mapio_other.go implements openImpl for platforms without the mmap(2)
// primitive mapio_unix.go relies on: a portable stdlib fallback with no
// syscall-level fast path. The "mapping" here is a plain in-memory read;
// it satisfies the same opaque byte-view contract without requiring a
// platform mmap wrapper.
package mapio

import "os"

type otherBackend struct{}

func (otherBackend) release() error { return nil }

func openImpl(path string) ([]byte, backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, otherBackend{}, nil
}
