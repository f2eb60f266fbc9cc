package watcher

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isWatchLimit reports whether err means the per-user inotify watch or
// instance limit (or the process file table) is exhausted.
func isWatchLimit(err error) bool {
	return errors.Is(err, unix.ENOSPC) ||
		errors.Is(err, unix.EMFILE) ||
		errors.Is(err, unix.ENFILE)
}
