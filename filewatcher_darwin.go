//go:build darwin
// +build darwin

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// descriptorWatcher re-runs a build whenever the watched descriptor file
// is written. Bursts of writes are debounced into one rebuild.
type descriptorWatcher struct {
	kq       int
	fd       int
	path     string
	mu       sync.Mutex
	debounce *time.Timer
	onChange func()
}

func newDescriptorWatcher(path string, onChange func()) (*descriptorWatcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue failed: %v", err)
	}

	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		unix.Close(kq)
		return nil, fmt.Errorf("failed to open %s: %v", path, err)
	}

	event := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err := unix.Kevent(kq, []unix.Kevent_t{event}, nil, nil); err != nil {
		unix.Close(fd)
		unix.Close(kq)
		return nil, fmt.Errorf("failed to add kevent for %s: %v", path, err)
	}

	return &descriptorWatcher{kq: kq, fd: fd, path: path, onChange: onChange}, nil
}

// Watch blocks, rebuilding on every change, until the process exits.
func (dw *descriptorWatcher) Watch() {
	events := make([]unix.Kevent_t, 10)

	for {
		n, err := unix.Kevent(dw.kq, nil, events, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if VerboseMode {
				fmt.Fprintf(os.Stderr, "Error reading kevent: %v\n", err)
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for i := 0; i < n; i++ {
			if int(events[i].Ident) == dw.fd {
				dw.trigger()
			}
		}
	}
}

func (dw *descriptorWatcher) trigger() {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if dw.debounce != nil {
		dw.debounce.Stop()
	}
	dw.debounce = time.AfterFunc(500*time.Millisecond, dw.onChange)
}

func (dw *descriptorWatcher) Close() error {
	unix.Close(dw.fd)
	return unix.Close(dw.kq)
}
