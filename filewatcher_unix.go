//go:build linux
// +build linux

package main

import (
	"fmt"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// descriptorWatcher re-runs a build whenever the watched descriptor file
// is written. Bursts of writes are debounced into one rebuild.
type descriptorWatcher struct {
	fd       int
	path     string
	mu       sync.Mutex
	debounce *time.Timer
	onChange func()
}

func newDescriptorWatcher(path string, onChange func()) (*descriptorWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %v", err)
	}
	if _, err := unix.InotifyAddWatch(fd, path, unix.IN_MODIFY|unix.IN_CLOSE_WRITE); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to watch %s: %v", path, err)
	}
	return &descriptorWatcher{fd: fd, path: path, onChange: onChange}, nil
}

// Watch blocks, rebuilding on every change, until the process exits.
func (dw *descriptorWatcher) Watch() {
	buf := make([]byte, unix.SizeofInotifyEvent*10)

	for {
		n, err := unix.Read(dw.fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if VerboseMode {
				fmt.Fprintf(os.Stderr, "Error reading inotify events: %v\n", err)
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		offset := 0
		for offset < n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
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
	return unix.Close(dw.fd)
}
