package link

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Endpoint is one of the two local MIDI named pipes (midi_in, written
// with bytes decoded from the BLE-MIDI link; midi_out, read and
// forwarded to the BLE-MIDI link). It corresponds to a single
// ba_transport_midi struct from the original source: a mutex-guarded
// file descriptor that can be closed out from under a concurrent
// reader/writer without a data race.
type Endpoint struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenFIFOEndpoint creates path as a named pipe if it does not already
// exist, then opens it for non-blocking read-write access so the bridge
// does not deadlock waiting for a peer to open the other end first.
func OpenFIFOEndpoint(path string) (*Endpoint, error) {
	if err := unix.Mkfifo(path, 0o644); err != nil && !errors.Is(err, unix.EEXIST) {
		return nil, fmt.Errorf("link: mkfifo %s: %w", path, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("link: open fifo %s: %w", path, err)
	}

	return &Endpoint{path: path, file: file}, nil
}

// Read reads from the FIFO. Returns (0, nil) rather than blocking when
// the pipe holds no data (the endpoint itself keeps the write end open,
// so an empty pipe reports EAGAIN, which is not returned as an error),
// and also once the endpoint has been closed.
func (e *Endpoint) Read(p []byte) (int, error) {
	e.mu.Lock()
	file := e.file
	e.mu.Unlock()

	if file == nil {
		return 0, nil
	}
	n, err := file.Read(p)
	if errors.Is(err, unix.EAGAIN) {
		return 0, nil
	}
	return n, err
}

// Write writes to the FIFO, discarding the data if the pipe is
// currently closed rather than erroring, mirroring midi_watch_output's
// "only write if fd != -1" guard.
func (e *Endpoint) Write(p []byte) (int, error) {
	e.mu.Lock()
	file := e.file
	e.mu.Unlock()

	if file == nil {
		return len(p), nil
	}
	n, err := file.Write(p)
	if errors.Is(err, unix.EAGAIN) {
		return len(p), nil
	}
	return n, err
}

// Close closes the underlying file descriptor. Safe to call once the
// endpoint is no longer referenced by a running transport.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
