// Package acquisition obtains a single position by racing a continuous high accuracy watch
// against a deadline, and falling back to a one-shot low accuracy request when the watch fails
// or is too slow.
package acquisition

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/positioning"
)

const (
	// DefaultTimeout is how long the high accuracy watch may run before falling back.
	DefaultTimeout = 10 * time.Second
	// DefaultLowAccuracyTimeout bounds the one-shot low accuracy request.
	DefaultLowAccuracyTimeout = 10 * time.Second

	// watchDistanceFilter is the minimum movement, in meters, between two watch fixes.
	watchDistanceFilter = 1.0
)

// Observers are notified of the acquisition lifecycle. Every field is optional.
type Observers struct {
	OnSearchHighAccuracy  func()
	OnSuccessHighAccuracy func()
	OnTimeoutHighAccuracy func()
	OnSearchLowAccuracy   func()
	OnSuccessLowAccuracy  func()
}

// Config configures one acquisition.
type Config struct {
	// Timeout is the high accuracy deadline. DefaultTimeout is used when it is not positive.
	Timeout time.Duration
	Observers
}

func (cfg Config) timeout() time.Duration {
	if cfg.Timeout <= 0 {
		return DefaultTimeout
	}
	return cfg.Timeout
}

// An Acquirer runs acquisitions against a Positioner. It keeps no per-acquisition state and may
// be used concurrently.
type Acquirer struct {
	positioner positioning.Positioner
	logger     logging.Logger
	clock      clock.Clock
	lowTimeout time.Duration
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithClock sets the clock used for the deadlines.
func WithClock(clk clock.Clock) Option {
	return func(a *Acquirer) {
		a.clock = clk
	}
}

// WithLowAccuracyTimeout overrides DefaultLowAccuracyTimeout.
func WithLowAccuracyTimeout(d time.Duration) Option {
	return func(a *Acquirer) {
		if d > 0 {
			a.lowTimeout = d
		}
	}
}

// NewAcquirer returns an Acquirer driving p.
func NewAcquirer(p positioning.Positioner, logger logging.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		positioner: p,
		logger:     logger,
		clock:      clock.New(),
		lowTimeout: DefaultLowAccuracyTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire starts an acquisition and returns immediately. Exactly one of onSuccess or onError is
// called once the acquisition resolves, possibly before Acquire returns. Cancelling ctx resolves
// a pending acquisition with the context error.
func (a *Acquirer) Acquire(
	ctx context.Context,
	onSuccess func(location.Coordinate),
	onError func(error),
	cfg Config,
) {
	r := &request{
		acquirer:  a,
		ctx:       ctx,
		cfg:       cfg,
		onSuccess: onSuccess,
		onError:   onError,
	}
	r.start()
}

// Locate runs an acquisition and waits for its outcome.
func (a *Acquirer) Locate(ctx context.Context, cfg Config) (location.Coordinate, error) {
	type outcome struct {
		coord location.Coordinate
		err   error
	}
	done := make(chan outcome, 1)
	a.Acquire(ctx,
		func(c location.Coordinate) { done <- outcome{coord: c} },
		func(err error) { done <- outcome{err: err} },
		cfg)
	res := <-done
	return res.coord, res.err
}
