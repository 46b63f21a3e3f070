package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// pidFile records the server's PID, optionally holding an exclusive flock so a second
// server on the same storage refuses to start
type pidFile struct {
	path   string
	locked bool
	file   *os.File
}

// managePIDFile writes the PID file and returns the function that removes it on exit
func managePIDFile(path string, lock bool) (func(), error) {
	p := &pidFile{path: path, locked: lock}
	if err := p.acquire(); err != nil {
		return nil, err
	}
	return p.release, nil
}

func (p *pidFile) acquire() error {
	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	switch {
	case err == nil:
	case !os.IsExist(err):
		return fmt.Errorf("cannot create PID file: %w", err)
	default:
		// Leftover from an earlier run; with locking it must belong to a dead process
		if p.locked {
			if err := checkStalePID(p.path); err != nil {
				return err
			}
		}
		if file, err = os.OpenFile(p.path, os.O_WRONLY|os.O_TRUNC, 0644); err != nil {
			return fmt.Errorf("cannot open PID file: %w", err)
		}
	}
	p.file = file

	if p.locked {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
			file.Close()
			if errors.Is(err, syscall.EWOULDBLOCK) {
				return fmt.Errorf("cannot acquire lock: another server is running")
			}
			return fmt.Errorf("lock failed: %w", err)
		}
	}

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		p.discard()
		return fmt.Errorf("cannot write PID: %w", err)
	}
	if err := file.Sync(); err != nil {
		p.discard()
		return fmt.Errorf("cannot sync PID file: %w", err)
	}
	return nil
}

func (p *pidFile) discard() {
	p.file.Close()
	os.Remove(p.path)
}

func (p *pidFile) release() {
	if p.locked {
		syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN)
	}
	p.discard()
}

// checkStalePID fails unless the PID in path names a process that no longer exists
func checkStalePID(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read existing PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("corrupted PID file (contains: %q)", data)
	}

	// FindProcess never fails on Unix; signal 0 probes for existence
	proc, _ := os.FindProcess(pid)
	err = proc.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return fmt.Errorf("PID file names running process %d", pid)
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return nil
	default:
		return fmt.Errorf("process %d exists but cannot verify ownership: %v", pid, err)
	}
}
