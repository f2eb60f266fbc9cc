// Package watcher reports batched filesystem changes under a directory tree.
//
// A Controller registers a recursive fsnotify watch on a root directory and
// runs a single loop that receives raw events with a bounded timeout. Each
// event is classified, directories and the consumer's own probe files
// (<exclusion root>.probe-*) are dropped, and the remaining paths are
// debounced: a batch is delivered to the Notifier once no new change has
// been recorded for the debounce interval.
//
// Key features:
//   - Cooperative cancellation (Notifier poll, Stop, or context), honored
//     within one tick
//   - Final flush of pending paths on shutdown
//   - Stable error codes for setup failures (path not found, inotify limit, ...)
//   - Daemon mode support with PID file management
//
// Example usage:
//
//	c := watcher.New(watcher.Config{Logger: slog.Default()})
//
//	// Blocks until n.ShouldKeepLooping returns false or c.Stop is called.
//	if err := c.Watch(ctx, "/src/repo", "/src/repo/.git/", n); err != nil {
//		var initErr *watcher.InitError
//		if errors.As(err, &initErr) {
//			log.Fatalf("watch failed: %s", initErr.Code)
//		}
//	}
package watcher
