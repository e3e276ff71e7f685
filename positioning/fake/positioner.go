// Package fake implements an in-memory Positioner whose fixes and errors are pushed by hand, or
// played back from a script.
package fake

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/positioning"
)

// Watch is a watch registered on the fake.
type Watch struct {
	ID   positioning.WatchID
	Opts positioning.RequestOptions

	p       *Positioner
	onFix   func(location.Coordinate)
	onError func(error)
}

// Fix delivers a fix to the watch, even if it has been cleared: a real source may have a
// callback in flight when ClearWatch is called.
func (w *Watch) Fix(c location.Coordinate) {
	w.onFix(c)
}

// Fail delivers an error to the watch.
func (w *Watch) Fail(err error) {
	w.onError(err)
}

// Cleared reports whether ClearWatch was called for this watch.
func (w *Watch) Cleared() bool {
	w.p.mu.Lock()
	defer w.p.mu.Unlock()
	_, active := w.p.active[w.ID]
	return !active
}

// Request is a one-shot request made on the fake.
type Request struct {
	Opts positioning.RequestOptions

	onFix   func(location.Coordinate)
	onError func(error)
}

// Fix answers the request with a fix.
func (r *Request) Fix(c location.Coordinate) {
	r.onFix(c)
}

// Fail answers the request with an error.
func (r *Request) Fail(err error) {
	r.onError(err)
}

// Outcome is a scripted answer: a fix, or an error when Err is set, delivered after Delay.
type Outcome struct {
	Coordinate location.Coordinate
	Err        error
	Delay      time.Duration
}

// Positioner records every call made against it.
type Positioner struct {
	mu       sync.Mutex
	nextID   positioning.WatchID
	watches  []*Watch
	active   map[positioning.WatchID]struct{}
	requests []*Request

	// WatchErr, when set, is returned by Watch instead of registering a watch.
	WatchErr error

	clock clock.Clock
	high  *Outcome
	low   *Outcome
}

// NewPositioner returns a fake that only answers when driven by hand.
func NewPositioner() *Positioner {
	return &Positioner{active: map[positioning.WatchID]struct{}{}}
}

// NewScripted returns a fake that answers watches with high and one-shot requests with low, on
// the given clock. A nil outcome never answers.
func NewScripted(clk clock.Clock, high, low *Outcome) *Positioner {
	p := NewPositioner()
	p.clock = clk
	p.high = high
	p.low = low
	return p
}

// Watch registers a watch.
func (p *Positioner) Watch(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) (positioning.WatchID, error) {
	p.mu.Lock()
	if p.WatchErr != nil {
		p.mu.Unlock()
		return 0, p.WatchErr
	}
	p.nextID++
	w := &Watch{ID: p.nextID, Opts: opts, p: p, onFix: onFix, onError: onError}
	p.watches = append(p.watches, w)
	p.active[w.ID] = struct{}{}
	p.mu.Unlock()

	if p.high != nil {
		out := *p.high
		p.clock.AfterFunc(out.Delay, func() {
			if w.Cleared() {
				return
			}
			if out.Err != nil {
				w.Fail(out.Err)
				return
			}
			w.Fix(stamp(out.Coordinate, p.clock))
		})
	}
	return w.ID, nil
}

// ClearWatch deregisters a watch. Clearing an unknown or already cleared watch is a no-op.
func (p *Positioner) ClearWatch(id positioning.WatchID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, id)
}

// RequestOnce records a one-shot request.
func (p *Positioner) RequestOnce(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) {
	r := &Request{Opts: opts, onFix: onFix, onError: onError}
	p.mu.Lock()
	p.requests = append(p.requests, r)
	p.mu.Unlock()

	if p.low != nil {
		out := *p.low
		p.clock.AfterFunc(out.Delay, func() {
			if out.Err != nil {
				r.Fail(out.Err)
				return
			}
			r.Fix(stamp(out.Coordinate, p.clock))
		})
	}
}

// Watches returns every watch registered so far, in order.
func (p *Positioner) Watches() []*Watch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Watch(nil), p.watches...)
}

// ActiveWatches returns how many watches have not been cleared.
func (p *Positioner) ActiveWatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Requests returns every one-shot request made so far, in order.
func (p *Positioner) Requests() []*Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Request(nil), p.requests...)
}

// LastWatch returns the most recent watch, or nil.
func (p *Positioner) LastWatch() *Watch {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.watches) == 0 {
		return nil
	}
	return p.watches[len(p.watches)-1]
}

// LastRequest returns the most recent one-shot request, or nil.
func (p *Positioner) LastRequest() *Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.requests) == 0 {
		return nil
	}
	return p.requests[len(p.requests)-1]
}

func stamp(c location.Coordinate, clk clock.Clock) location.Coordinate {
	if c.Timestamp.IsZero() {
		c.Timestamp = clk.Now()
	}
	return c
}
