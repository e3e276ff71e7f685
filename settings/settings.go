// Package settings reports whether location services are switched on.
package settings

import (
	"context"
	"sync"

	"golang.org/x/sys/unix"
)

// State of the location setting.
type State int

// The setting is either on or off.
const (
	StateDisabled State = iota
	StateEnabled
)

func (s State) String() string {
	if s == StateEnabled {
		return "enabled"
	}
	return "disabled"
}

// Oracle reads the location setting and can offer the user a chance to change it.
type Oracle interface {
	Get(ctx context.Context) (State, error)
	// Open offers to turn location services on and returns the state afterwards.
	Open(ctx context.Context) (State, error)
}

// Static is an Oracle with a fixed state. Open switches it to the state given at construction.
type Static struct {
	mu        sync.Mutex
	state     State
	afterOpen State
	opened    int
}

// NewStatic returns a Static reporting state, and afterOpen once Open was called.
func NewStatic(state, afterOpen State) *Static {
	return &Static{state: state, afterOpen: afterOpen}
}

// Get returns the current state.
func (s *Static) Get(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Open applies the after-open state.
func (s *Static) Open(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	s.state = s.afterOpen
	return s.state, nil
}

// Opened returns how many times Open was called.
func (s *Static) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// DevicePresent treats location as enabled while the receiver device node exists.
type DevicePresent struct {
	Path string
}

// Get reports whether the device exists.
func (d *DevicePresent) Get(ctx context.Context) (State, error) {
	if unix.Access(d.Path, unix.F_OK) != nil {
		return StateDisabled, nil
	}
	return StateEnabled, nil
}

// Open looks again, in case the receiver was plugged in meanwhile.
func (d *DevicePresent) Open(ctx context.Context) (State, error) {
	return d.Get(ctx)
}
