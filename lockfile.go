package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var ErrAlreadyRunning = errors.New("another kioskctl daemon is running")

func runtimeDir() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = "/tmp"
	}
	return dir
}

func lockFilePath() string {
	return filepath.Join(runtimeDir(), "kioskctl.lock")
}

// acquireInstanceLock takes an exclusive flock on path without blocking. The
// returned file holds the lock until it is closed.
func acquireInstanceLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "open lock file")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrAlreadyRunning
		}
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	return f, nil
}
