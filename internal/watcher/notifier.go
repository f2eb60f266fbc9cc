package watcher

// Notifier receives the output of a watch session. All methods are called on
// the Controller's loop goroutine.
type Notifier interface {
	// ShouldKeepLooping is polled once per tick. Returning false stops the
	// session cooperatively.
	ShouldKeepLooping() bool

	// DetectedChange delivers a non-empty batch. It must return quickly since
	// it delays the next tick.
	DetectedChange(paths []string)

	// OnError is called at most once, only when the watch could not be set up.
	OnError(err *InitError)
}
