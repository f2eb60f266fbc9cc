package watcher

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Controller runs one watch session: it drives a Source, classifies and
// debounces what it reports, and hands batches to a Notifier.
//
// Watch blocks until the session is over. Stop may be called from any
// goroutine; it is honored at the next tick.
type Controller struct {
	cfg Config

	state   stateBox
	stop    atomic.Bool
	started atomic.Bool
	done    chan struct{}
	result  error
	cleanup sync.Once
	stats   counters
}

// New creates a Controller for a single session.
func New(cfg Config) *Controller {
	return &Controller{
		cfg:  cfg.withDefaults(),
		done: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state.load()
}

// Stop requests the session to end. It is safe to call more than once and
// before the session started.
func (c *Controller) Stop() {
	c.stop.Store(true)
}

// Start runs Watch on a new goroutine. Use Wait to collect its result.
func (c *Controller) Start(ctx context.Context, root, exclusionRoot string, n Notifier) error {
	if c.started.Load() {
		return ErrAlreadyStarted
	}
	ready := make(chan error, 1)
	go func() {
		err := c.watch(ctx, root, exclusionRoot, n, ready)
		if errors.Is(err, ErrAlreadyStarted) {
			ready <- err
		}
	}()
	return <-ready
}

// Wait blocks until a started session reaches StateStopped and returns the
// session's result. It returns nil immediately if no session was started.
func (c *Controller) Wait() error {
	if !c.started.Load() {
		return nil
	}
	<-c.done
	return c.result
}

// Watch watches root recursively until the Notifier, Stop or ctx ends the
// session. Probe files under exclusionRoot are never reported. It returns
// the *InitError reported to the Notifier if the watch could not be set up.
func (c *Controller) Watch(ctx context.Context, root, exclusionRoot string, n Notifier) error {
	return c.watch(ctx, root, exclusionRoot, n, nil)
}

func (c *Controller) watch(ctx context.Context, root, exclusionRoot string, n Notifier, ready chan<- error) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if ready != nil {
		ready <- nil
	}
	defer close(c.done)

	c.result = c.run(ctx, root, exclusionRoot, n)
	return c.result
}

func (c *Controller) run(ctx context.Context, root, exclusionRoot string, n Notifier) error {
	logger := c.cfg.Logger.With("root", root)

	src, initErr := c.open(root, logger)
	if initErr != nil {
		c.state.advance(StateStopped)
		logger.Error("watch failed to start", "code", initErr.Code.String(), "error", initErr)
		n.OnError(initErr)
		return initErr
	}
	c.state.advance(StateWatching)
	logger.Debug("watch started", "exclusion_root", exclusionRoot)

	agg := NewAggregator(c.cfg.Debounce)
	closedLogged := false

	for c.keepLooping(ctx, n) {
		ev, err := src.Next(c.cfg.Tick)
		switch {
		case err == nil:
			c.stats.events.Add(1)
			paths := Classify(ev, exclusionRoot)
			c.stats.dropped.Add(uint64(len(ev.Paths) - len(paths)))
			if len(paths) > 0 {
				agg.Record(paths, c.cfg.Now())
				c.stats.recorded.Add(uint64(len(paths)))
			}
		case errors.Is(err, ErrTimeout):
			if agg.ShouldFlush(c.cfg.Now()) {
				c.deliver(n, agg.Flush())
			}
		case errors.Is(err, ErrSourceClosed):
			c.stats.receiveErrors.Add(1)
			if !closedLogged {
				logger.Warn("event source closed, waiting for stop")
				closedLogged = true
			}
		default:
			c.stats.receiveErrors.Add(1)
			logger.Warn("watch receive error", "error", err)
		}
	}

	c.state.advance(StateStopping)
	if agg.Pending() > 0 {
		c.deliver(n, agg.Flush())
	}
	c.shutdown(src, logger)
	c.state.advance(StateStopped)
	logger.Debug("watch stopped")
	return nil
}

func (c *Controller) open(root string, logger *slog.Logger) (Source, *InitError) {
	if initErr := c.cfg.validate(); initErr != nil {
		return nil, initErr
	}
	if root == "" {
		return nil, invalidConfig("watch root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, classifyInitError(err)
	}
	src := c.cfg.NewSource(logger)
	if err := src.Start(abs); err != nil {
		return nil, classifyInitError(err)
	}
	return src, nil
}

func (c *Controller) keepLooping(ctx context.Context, n Notifier) bool {
	if c.stop.Load() || ctx.Err() != nil {
		return false
	}
	return n.ShouldKeepLooping()
}

func (c *Controller) deliver(n Notifier, paths []string) {
	c.stats.batches.Add(1)
	c.stats.delivered.Add(uint64(len(paths)))
	n.DetectedChange(paths)
}

// shutdown unregisters the watch once per session. The watch may already be
// gone, so failures are only logged.
func (c *Controller) shutdown(src Source, logger *slog.Logger) {
	c.cleanup.Do(func() {
		if err := src.Stop(); err != nil {
			logger.Debug("unwatch failed", "error", err)
		}
	})
}
