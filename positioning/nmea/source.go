// Package nmea implements a Positioner that reads NMEA 0183 sentences from a GPS receiver.
package nmea

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/positioning"
	"github.com/geofix/locmgr/serial"
	"github.com/geofix/locmgr/utils"
)

const (
	defaultBaudRate = 9600
	// DefaultMaxHDOP is the worst horizontal dilution of precision still accepted as high accuracy.
	DefaultMaxHDOP = 2.0
)

// Config describes a serial NMEA receiver.
type Config struct {
	SerialPath     string  `json:"serial_path"`
	SerialBaudRate int     `json:"serial_baud_rate,omitempty"`
	MaxHDOP        float64 `json:"max_hdop,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.SerialPath == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "serial_path")
	}
	if cfg.SerialBaudRate < 0 {
		return goutils.NewConfigValidationError(path, errors.New("serial_baud_rate must be positive"))
	}
	if cfg.MaxHDOP < 0 {
		return goutils.NewConfigValidationError(path, errors.New("max_hdop must be positive"))
	}
	return nil
}

// Option configures a Source.
type Option func(*Source)

// WithClock sets the clock used to stamp fixes and to time out requests.
func WithClock(clk clock.Clock) Option {
	return func(s *Source) {
		s.clock = clk
	}
}

// WithMaxHDOP overrides DefaultMaxHDOP.
func WithMaxHDOP(hdop float64) Option {
	return func(s *Source) {
		if hdop > 0 {
			s.maxHDOP = hdop
		}
	}
}

type watch struct {
	id        positioning.WatchID
	opts      positioning.RequestOptions
	onFix     func(location.Coordinate)
	onError   func(error)
	delivered *location.Coordinate
	timer     *clock.Timer
	stopCtx   func() bool
}

type oneShot struct {
	opts    positioning.RequestOptions
	onFix   func(location.Coordinate)
	onError func(error)
	timer   *clock.Timer
	stopCtx func() bool
}

type lastReading struct {
	reading
	receivedAt time.Time
}

// Source is a Positioner fed by a stream of NMEA sentences.
type Source struct {
	logger  logging.Logger
	clock   clock.Clock
	maxHDOP float64
	dev     io.ReadCloser
	workers utils.StoppableWorkers

	mu      sync.Mutex
	nextID  positioning.WatchID
	watches map[positioning.WatchID]*watch
	pending map[*oneShot]struct{}
	last    *lastReading
	err     error
}

// Open opens the serial receiver described by cfg and starts reading from it.
func Open(cfg *Config, logger logging.Logger, opts ...Option) (*Source, error) {
	baudRate := cfg.SerialBaudRate
	if baudRate == 0 {
		baudRate = defaultBaudRate
		logger.Infof("serial_baud_rate using default %d", defaultBaudRate)
	}
	dev, err := serial.OpenDevice(cfg.SerialPath, uint(baudRate))
	if err != nil {
		return nil, errors.Wrapf(err, "opening nmea receiver %s", cfg.SerialPath)
	}
	if cfg.MaxHDOP > 0 {
		opts = append(opts, WithMaxHDOP(cfg.MaxHDOP))
	}
	return New(dev, logger, opts...), nil
}

// New starts reading sentences from dev. Close closes dev.
func New(dev io.ReadCloser, logger logging.Logger, opts ...Option) *Source {
	s := &Source{
		logger:  logger,
		clock:   clock.New(),
		maxHDOP: DefaultMaxHDOP,
		dev:     dev,
		watches: map[positioning.WatchID]*watch{},
		pending: map[*oneShot]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.workers = utils.NewStoppableWorkers(s.read)
	return s
}

func (s *Source) read(ctx context.Context) {
	r := bufio.NewReader(s.dev)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Errorw("can't read nmea stream", "error", err)
			}
			s.fail(multierr.Combine(positioning.ErrPositionUnavailable, err))
			return
		}

		rd, ok, err := parseSentence(line, s.maxHDOP, s.clock.Now())
		if err != nil {
			s.logger.Debugw("can't parse nmea sentence", "error", err)
			continue
		}
		if ok {
			s.dispatch(rd)
		}
	}
}

// dispatch records a reading and hands it to every watch and one-shot request it satisfies.
func (s *Source) dispatch(rd reading) {
	var deliveries []func()

	s.mu.Lock()
	s.last = &lastReading{reading: rd, receivedAt: s.clock.Now()}
	for _, w := range s.watches {
		if !rd.qualifies(w.opts.HighAccuracy) {
			continue
		}
		if w.delivered != nil && w.delivered.DistanceTo(rd.coord)*1000 < w.opts.MinDistanceDelta {
			continue
		}
		coord := rd.coord
		w.delivered = &coord
		if w.timer != nil {
			w.timer.Stop()
		}
		onFix := w.onFix
		deliveries = append(deliveries, func() { onFix(coord) })
	}
	for o := range s.pending {
		if !rd.qualifies(o.opts.HighAccuracy) {
			continue
		}
		s.finishLocked(o)
		onFix, coord := o.onFix, rd.coord
		deliveries = append(deliveries, func() { onFix(coord) })
	}
	s.mu.Unlock()

	for _, deliver := range deliveries {
		deliver()
	}
}

// fail ends every watch and pending request with err.
func (s *Source) fail(err error) {
	var failures []func()

	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	for id, w := range s.watches {
		s.removeWatchLocked(id)
		onError := w.onError
		failures = append(failures, func() { onError(err) })
	}
	for o := range s.pending {
		s.finishLocked(o)
		onError := o.onError
		failures = append(failures, func() { onError(err) })
	}
	s.mu.Unlock()

	for _, f := range failures {
		f()
	}
}

// recentLocked returns the last reading if opts allow reusing it.
func (s *Source) recentLocked(opts positioning.RequestOptions) (location.Coordinate, bool) {
	if s.last == nil || opts.MaxStaleness <= 0 || !s.last.qualifies(opts.HighAccuracy) {
		return location.Coordinate{}, false
	}
	if s.clock.Since(s.last.receivedAt) > opts.MaxStaleness {
		return location.Coordinate{}, false
	}
	return s.last.coord, true
}

// Watch delivers every qualifying fix, at least MinDistanceDelta meters apart, until cleared.
// If Timeout elapses before the first qualifying fix the watch reports positioning.ErrTimeout and
// is removed.
func (s *Source) Watch(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) (positioning.WatchID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return 0, err
	}
	s.nextID++
	w := &watch{id: s.nextID, opts: opts, onFix: onFix, onError: onError}
	s.watches[w.id] = w
	if opts.Timeout > 0 {
		w.timer = s.clock.AfterFunc(opts.Timeout, func() { s.watchTimeout(w.id) })
	}
	w.stopCtx = context.AfterFunc(ctx, func() { s.ClearWatch(w.id) })
	recent, ok := s.recentLocked(opts)
	if ok {
		w.delivered = &recent
		if w.timer != nil {
			w.timer.Stop()
		}
	}
	s.mu.Unlock()

	s.logger.Debugw("watch registered", "id", w.id, "high_accuracy", opts.HighAccuracy)
	if ok {
		onFix(recent)
	}
	return w.id, nil
}

func (s *Source) watchTimeout(id positioning.WatchID) {
	s.mu.Lock()
	w, ok := s.watches[id]
	if !ok || w.delivered != nil {
		s.mu.Unlock()
		return
	}
	s.removeWatchLocked(id)
	s.mu.Unlock()
	s.logger.Debugw("watch timed out", "id", id)
	w.onError(positioning.ErrTimeout)
}

// ClearWatch deregisters a watch. Unknown ids are ignored.
func (s *Source) ClearWatch(id positioning.WatchID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeWatchLocked(id) {
		s.logger.Debugw("watch cleared", "id", id)
	}
}

func (s *Source) removeWatchLocked(id positioning.WatchID) bool {
	w, ok := s.watches[id]
	if !ok {
		return false
	}
	delete(s.watches, id)
	if w.timer != nil {
		w.timer.Stop()
	}
	if w.stopCtx != nil {
		w.stopCtx()
	}
	return true
}

// RequestOnce delivers the next qualifying fix, or an error once Timeout elapses or ctx is done.
func (s *Source) RequestOnce(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		onError(err)
		return
	}
	if recent, ok := s.recentLocked(opts); ok {
		s.mu.Unlock()
		onFix(recent)
		return
	}
	o := &oneShot{opts: opts, onFix: onFix, onError: onError}
	s.pending[o] = struct{}{}
	if opts.Timeout > 0 {
		o.timer = s.clock.AfterFunc(opts.Timeout, func() { s.abandon(o, positioning.ErrTimeout) })
	}
	o.stopCtx = context.AfterFunc(ctx, func() { s.abandon(o, ctx.Err()) })
	s.mu.Unlock()
}

func (s *Source) abandon(o *oneShot, err error) {
	s.mu.Lock()
	if _, ok := s.pending[o]; !ok {
		s.mu.Unlock()
		return
	}
	s.finishLocked(o)
	s.mu.Unlock()
	o.onError(err)
}

func (s *Source) finishLocked(o *oneShot) {
	delete(s.pending, o)
	if o.timer != nil {
		o.timer.Stop()
	}
	if o.stopCtx != nil {
		o.stopCtx()
	}
}

// Close stops reading and fails every outstanding request with positioning.ErrClosed.
func (s *Source) Close() error {
	s.fail(positioning.ErrClosed)
	err := s.dev.Close()
	s.workers.Stop()
	return err
}
