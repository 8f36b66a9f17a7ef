//go:build linux || (darwin && !ios) || freebsd || openbsd || netbsd || dragonfly

// mapio_unix.go implements openImpl for platforms with a real mmap(2),
// using golang.org/x/sys/unix and the usual EINTR-retry loop around open.
package mapio

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

type unixBackend struct {
	data []byte
}

func (b *unixBackend) release() error {
	if b.data == nil {
		return nil
	}
	err := unix.Munmap(b.data)
	b.data = nil
	if err != nil {
		return fmt.Errorf("munmap: %w", err)
	}
	return nil
}

func openImpl(path string) ([]byte, backend, error) {
	var f *os.File
	var err error
	for {
		f, err = os.OpenFile(path, os.O_RDONLY, 0)
		if err == syscall.EINTR {
			continue
		}
		break
	}
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := st.Size()
	if size == 0 {
		// mmap of a zero-length file fails on every unix we support; an
		// empty byte view is a legitimate input, so hand back an empty
		// slice with no mapping.
		return []byte{}, &unixBackend{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap: %w", err)
	}

	return data, &unixBackend{data: data}, nil
}
