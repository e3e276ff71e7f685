// Package positioning defines the positioning capability the acquirer drives: a continuous
// watch and a one-shot request, each reporting fixes or errors through callbacks.
package positioning

import (
	"context"
	"errors"
	"time"

	"github.com/geofix/locmgr/location"
)

var (
	// ErrPositionUnavailable is reported when the source cannot produce a fix at all.
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrTimeout is reported when no qualifying fix arrived within the requested timeout.
	ErrTimeout = errors.New("position request timed out")
	// ErrPermissionDenied is reported when the source refuses access to its device.
	ErrPermissionDenied = errors.New("positioning permission denied")
	// ErrClosed is reported for requests made after, or pending at, Close.
	ErrClosed = errors.New("positioning source closed")
)

// WatchID identifies an active watch.
type WatchID int64

// RequestOptions tunes a watch or a one-shot request.
type RequestOptions struct {
	// HighAccuracy asks for the most precise fix the source can produce.
	HighAccuracy bool
	// Timeout bounds how long the source waits for a qualifying fix before reporting ErrTimeout.
	// Zero means no bound.
	Timeout time.Duration
	// MaxStaleness is the maximum age of a previously seen fix that may be returned. Zero forbids
	// returning any fix older than the request.
	MaxStaleness time.Duration
	// MinDistanceDelta is the minimum movement in meters between two fixes delivered to a watch.
	// It is ignored by one-shot requests.
	MinDistanceDelta float64
}

// A Positioner produces position fixes.
//
// Callbacks may be invoked synchronously from within Watch or RequestOnce, or later from another
// goroutine. A watch keeps delivering fixes until ClearWatch is called; a one-shot request
// invokes exactly one of its callbacks.
type Positioner interface {
	Watch(ctx context.Context, opts RequestOptions, onFix func(location.Coordinate), onError func(error)) (WatchID, error)
	ClearWatch(id WatchID)
	RequestOnce(ctx context.Context, opts RequestOptions, onFix func(location.Coordinate), onError func(error))
}
