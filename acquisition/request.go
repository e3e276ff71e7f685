package acquisition

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/positioning"
)

// state is the position of a request in its lifecycle. Transitions only move forward:
//
//	pending -> highAccuracyResolved
//	pending -> lowAccuracyPending -> resolved
//	pending | lowAccuracyPending -> resolved (context done)
type state int

const (
	statePending state = iota
	stateLowAccuracyPending
	stateHighAccuracyResolved
	stateResolved
)

func (s state) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateLowAccuracyPending:
		return "low_accuracy_pending"
	case stateHighAccuracyResolved:
		return "high_accuracy_resolved"
	case stateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

func (s state) terminal() bool {
	return s == stateHighAccuracyResolved || s == stateResolved
}

// request is a single acquisition. It is discarded once resolved.
type request struct {
	acquirer  *Acquirer
	ctx       context.Context
	cfg       Config
	onSuccess func(location.Coordinate)
	onError   func(error)

	mu       sync.Mutex
	state    state
	deadline *clock.Timer
	lowGuard *clock.Timer
	stopCtx  func() bool

	watchID         positioning.WatchID
	watchRegistered bool
	watchCleared    bool
}

func (r *request) start() {
	a := r.acquirer
	timeout := r.cfg.timeout()

	a.logger.Debugf("requesting high accuracy position, timeout: %s", timeout)
	notify(r.cfg.OnSearchHighAccuracy)

	r.mu.Lock()
	r.deadline = a.clock.AfterFunc(timeout, r.handleDeadline)
	r.stopCtx = context.AfterFunc(r.ctx, r.handleDone)
	r.mu.Unlock()

	// the deadline is the only high accuracy timer, so a timeout always reaches OnTimeoutHighAccuracy.
	id, err := a.positioner.Watch(r.ctx, positioning.RequestOptions{
		HighAccuracy:     true,
		Timeout:          0,
		MaxStaleness:     0,
		MinDistanceDelta: watchDistanceFilter,
	}, r.handleHighAccuracyFix, r.handleHighAccuracyError)
	if err != nil {
		r.handleHighAccuracyError(err)
		return
	}

	r.mu.Lock()
	r.watchID = id
	r.watchRegistered = true
	// the watch may have answered, or the deadline fired, before Watch returned.
	release := r.state != statePending
	r.mu.Unlock()
	if release {
		r.releaseWatch()
	}
}

// advance moves the request to `to` if it currently is in `from`.
func (r *request) advance(from, to state) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != from {
		return false
	}
	r.state = to
	if to.terminal() {
		r.disarmLocked()
	} else if r.deadline != nil {
		r.deadline.Stop()
	}
	return true
}

func (r *request) disarmLocked() {
	if r.deadline != nil {
		r.deadline.Stop()
	}
	if r.lowGuard != nil {
		r.lowGuard.Stop()
	}
	if r.stopCtx != nil {
		r.stopCtx()
	}
}

func (r *request) currentState() state {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// releaseWatch deregisters the high accuracy watch once. If Watch has not returned yet, start
// releases it as soon as it does.
func (r *request) releaseWatch() {
	r.mu.Lock()
	if !r.watchRegistered || r.watchCleared {
		r.mu.Unlock()
		return
	}
	r.watchCleared = true
	id := r.watchID
	r.mu.Unlock()

	r.acquirer.positioner.ClearWatch(id)
}

func (r *request) handleHighAccuracyFix(c location.Coordinate) {
	if !r.advance(statePending, stateHighAccuracyResolved) {
		r.acquirer.logger.Debugw("discarding high accuracy fix", "state", r.currentState().String(), "fix", c.String())
		return
	}
	r.releaseWatch()
	r.acquirer.logger.Debugw("high accuracy position success", "fix", c.String())
	notify(r.cfg.OnSuccessHighAccuracy)
	r.onSuccess(c)
}

func (r *request) handleHighAccuracyError(err error) {
	if !r.advance(statePending, stateLowAccuracyPending) {
		r.acquirer.logger.Debugw("discarding high accuracy error", "state", r.currentState().String(), "error", err)
		return
	}
	r.releaseWatch()
	r.acquirer.logger.Infow("falling back to low accuracy",
		"error", &PositioningError{Reason: ErrPositioningUnavailable, Cause: err})
	r.requestLowAccuracy()
}

func (r *request) handleDeadline() {
	if !r.advance(statePending, stateLowAccuracyPending) {
		return
	}
	r.releaseWatch()
	r.acquirer.logger.Info("high accuracy timeout")
	notify(r.cfg.OnTimeoutHighAccuracy)
	r.requestLowAccuracy()
}

func (r *request) requestLowAccuracy() {
	a := r.acquirer
	a.logger.Debug("requesting low accuracy position")
	notify(r.cfg.OnSearchLowAccuracy)

	r.mu.Lock()
	if r.state != stateLowAccuracyPending {
		// cancelled while the observer ran
		r.mu.Unlock()
		return
	}
	r.lowGuard = a.clock.AfterFunc(a.lowTimeout, func() {
		r.handleLowAccuracyError(ErrPositioningTimeout)
	})
	r.mu.Unlock()

	a.positioner.RequestOnce(r.ctx, positioning.RequestOptions{
		HighAccuracy: false,
		Timeout:      a.lowTimeout,
		MaxStaleness: 0,
	}, r.handleLowAccuracyFix, r.handleLowAccuracyError)
}

func (r *request) handleLowAccuracyFix(c location.Coordinate) {
	if !r.advance(stateLowAccuracyPending, stateResolved) {
		r.acquirer.logger.Debugw("discarding low accuracy fix", "state", r.currentState().String(), "fix", c.String())
		return
	}
	r.acquirer.logger.Debugw("low accuracy position success", "fix", c.String())
	notify(r.cfg.OnSuccessLowAccuracy)
	r.onSuccess(c)
}

func (r *request) handleLowAccuracyError(err error) {
	if !r.advance(stateLowAccuracyPending, stateResolved) {
		r.acquirer.logger.Debugw("discarding low accuracy error", "state", r.currentState().String(), "error", err)
		return
	}
	r.acquirer.logger.Warnw("low accuracy position failed", "error", err)
	r.onError(&PositioningError{Reason: ErrPositioningFailed, Cause: err})
}

func (r *request) handleDone() {
	r.mu.Lock()
	if r.state.terminal() {
		r.mu.Unlock()
		return
	}
	r.state = stateResolved
	r.disarmLocked()
	r.mu.Unlock()

	r.releaseWatch()
	r.onError(errors.Wrap(r.ctx.Err(), "acquiring position"))
}

func notify(f func()) {
	if f != nil {
		f()
	}
}
