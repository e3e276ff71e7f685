package cli

import (
	"context"
	"sync"

	"github.com/geofix/locmgr/location"
	"github.com/geofix/locmgr/logging"
	"github.com/geofix/locmgr/positioning"
	"github.com/geofix/locmgr/positioning/nmea"
)

// lazySource opens the NMEA receiver on first use.
type lazySource struct {
	cfg    *nmea.Config
	logger logging.Logger

	mu  sync.Mutex
	src *nmea.Source
	err error
}

func (l *lazySource) open() (*nmea.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src == nil && l.err == nil {
		l.src, l.err = nmea.Open(l.cfg, l.logger)
	}
	return l.src, l.err
}

func (l *lazySource) Watch(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) (positioning.WatchID, error) {
	src, err := l.open()
	if err != nil {
		return 0, err
	}
	return src.Watch(ctx, opts, onFix, onError)
}

func (l *lazySource) ClearWatch(id positioning.WatchID) {
	if src, err := l.open(); err == nil {
		src.ClearWatch(id)
	}
}

func (l *lazySource) RequestOnce(
	ctx context.Context,
	opts positioning.RequestOptions,
	onFix func(location.Coordinate),
	onError func(error),
) {
	src, err := l.open()
	if err != nil {
		onError(err)
		return
	}
	src.RequestOnce(ctx, opts, onFix, onError)
}

func (l *lazySource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src == nil {
		return nil
	}
	return l.src.Close()
}
