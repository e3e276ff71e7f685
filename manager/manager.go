// Package manager decides whether a position may be read at all, serves it from the cache when
// it is fresh enough, and otherwise runs an acquisition and caches the result.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/geofix/locmgr/acquisition"
	"github.com/geofix/locmgr/cache"
	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/permission"
	"github.com/geofix/locmgr/settings"
)

// DefaultMaxAge is how long a cached position is served before acquiring a new one.
const DefaultMaxAge = 30 * time.Second

var (
	// ErrStealthMode is returned while location services stay disabled after the user declined to
	// enable them.
	ErrStealthMode = errors.New("location sharing declined")
	// ErrPermissionUndetermined is returned when permission was never granted nor refused and
	// requesting it is not allowed.
	ErrPermissionUndetermined = errors.New("location permission undetermined")
	// ErrPermissionDenied is returned when the user refused permission.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrPermissionRestricted is returned when permission cannot be granted on this system.
	ErrPermissionRestricted = errors.New("location permission restricted")
	// ErrLocationDisabled is returned when location services are off.
	ErrLocationDisabled = errors.New("location services disabled")
)

// Source tells where a position came from.
type Source string

// The possible sources.
const (
	SourceCache        Source = "cache"
	SourceHighAccuracy Source = "high_accuracy"
	SourceLowAccuracy  Source = "low_accuracy"
)

// Fix is a position along with its source.
type Fix struct {
	location.Coordinate
	Source Source
}

// Locator runs a single acquisition. *acquisition.Acquirer implements it.
type Locator interface {
	Locate(ctx context.Context, cfg acquisition.Config) (location.Coordinate, error)
}

// Config configures a Manager.
type Config struct {
	// MaxAge is how old a cached position may be. DefaultMaxAge is used when it is not positive.
	MaxAge time.Duration
	// HighAccuracyTimeout is passed to every acquisition.
	HighAccuracyTimeout time.Duration
	// RequestPermission allows asking for permission when it is undetermined.
	RequestPermission bool
	// OpenSettings allows offering to turn location services on when they are off.
	OpenSettings bool

	Observers          acquisition.Observers
	OnPermissionDenied func(permission.Status)
	OnLocationError    func(error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to stamp and age cached positions.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

// Manager serves positions. It is safe for concurrent use.
type Manager struct {
	locator  Locator
	perm     permission.Oracle
	settings settings.Oracle
	store    cache.Store
	logger   logging.Logger
	clock    clock.Clock
	cfg      Config

	mu         sync.Mutex
	stealth    bool
	permKnown  bool
	permStatus permission.Status
}

// New returns a Manager.
func New(
	locator Locator,
	perm permission.Oracle,
	set settings.Oracle,
	store cache.Store,
	logger logging.Logger,
	cfg Config,
	opts ...Option,
) *Manager {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	m := &Manager{
		locator:  locator,
		perm:     perm,
		settings: set,
		store:    store,
		logger:   logger,
		clock:    clock.New(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetStealthMode turns stealth mode on or off. While on, disabled location services are not
// offered again and Locate fails with ErrStealthMode. Enabled services are used as usual.
func (m *Manager) SetStealthMode(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stealth = on
}

// StealthMode reports whether stealth mode is on.
func (m *Manager) StealthMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stealth
}

// Permission returns the remembered permission status and whether one was recorded yet.
func (m *Manager) Permission() (permission.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.permStatus, m.permKnown
}

// Locate returns the current position.
func (m *Manager) Locate(ctx context.Context) (location.Coordinate, error) {
	fix, err := m.LocateFix(ctx)
	return fix.Coordinate, err
}

// LocateFix returns the current position and where it came from.
func (m *Manager) LocateFix(ctx context.Context) (Fix, error) {
	if err := m.checkPermission(ctx); err != nil {
		return Fix{}, err
	}
	if err := m.checkSetting(ctx); err != nil {
		return Fix{}, err
	}

	cached, err := m.store.Get(ctx)
	if err != nil {
		// a broken cache only costs an acquisition
		m.logger.Warnw("can't read cached position", "error", err)
	} else if location.IsFresh(cached, m.cfg.MaxAge, m.clock.Now()) {
		m.logger.Debugw("returning cached position", "age", cached.Age(m.clock.Now()).String())
		return Fix{Coordinate: cached.Coordinate, Source: SourceCache}, nil
	}

	return m.acquire(ctx)
}

func (m *Manager) checkPermission(ctx context.Context) error {
	m.mu.Lock()
	status, known := m.permStatus, m.permKnown
	m.mu.Unlock()

	var requested bool
	if !known || status == permission.StatusUndetermined {
		var err error
		status, err = m.perm.Check(ctx)
		if err != nil {
			return errors.Wrap(err, "checking location permission")
		}
		m.logger.Debugw("checked location permission", "status", status.String())
		if status == permission.StatusUndetermined && m.cfg.RequestPermission {
			status, err = m.perm.Request(ctx)
			if err != nil {
				return errors.Wrap(err, "requesting location permission")
			}
			requested = true
			m.logger.Infow("location permission request answered", "status", status.String())
		}
		m.rememberPermission(status)
	}

	switch status {
	case permission.StatusAuthorized:
		return nil
	case permission.StatusUndetermined:
		// a request left unanswered counts as a refusal
		if requested {
			m.permissionDenied(status)
		}
		return ErrPermissionUndetermined
	case permission.StatusDenied:
		m.permissionDenied(status)
		return ErrPermissionDenied
	default:
		m.permissionDenied(status)
		return ErrPermissionRestricted
	}
}

func (m *Manager) rememberPermission(status permission.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permStatus = status
	m.permKnown = true
}

func (m *Manager) permissionDenied(status permission.Status) {
	m.logger.Warnw("location permission refused", "status", status.String())
	if m.cfg.OnPermissionDenied != nil {
		m.cfg.OnPermissionDenied(status)
	}
}

func (m *Manager) checkSetting(ctx context.Context) error {
	state, err := m.settings.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "reading location setting")
	}
	if state == settings.StateEnabled {
		return nil
	}
	if m.StealthMode() {
		return ErrStealthMode
	}
	if !m.cfg.OpenSettings {
		return ErrLocationDisabled
	}

	state, err = m.settings.Open(ctx)
	if err != nil {
		return errors.Wrap(err, "opening location settings")
	}
	if state == settings.StateEnabled {
		m.logger.Info("location services enabled")
		return nil
	}
	m.logger.Info("location services left disabled, entering stealth mode")
	m.SetStealthMode(true)
	return ErrLocationDisabled
}

func (m *Manager) acquire(ctx context.Context) (Fix, error) {
	var (
		srcMu  sync.Mutex
		source = SourceLowAccuracy
	)
	obs := m.cfg.Observers
	onHigh := obs.OnSuccessHighAccuracy
	obs.OnSuccessHighAccuracy = func() {
		srcMu.Lock()
		source = SourceHighAccuracy
		srcMu.Unlock()
		if onHigh != nil {
			onHigh()
		}
	}

	coord, err := m.locator.Locate(ctx, acquisition.Config{
		Timeout:   m.cfg.HighAccuracyTimeout,
		Observers: obs,
	})
	if err != nil {
		if m.cfg.OnLocationError != nil {
			m.cfg.OnLocationError(err)
		}
		return Fix{}, err
	}

	if err := m.store.Set(ctx, location.CachedPosition{Coordinate: coord, CapturedAt: m.clock.Now()}); err != nil {
		m.logger.Warnw("can't cache position", "error", err)
	}

	srcMu.Lock()
	defer srcMu.Unlock()
	return Fix{Coordinate: coord, Source: source}, nil
}
