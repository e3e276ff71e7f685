// Package permission answers whether this process may read the position at all.
package permission

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Status is the authorization state for reading the position.
type Status int

// The known statuses.
const (
	StatusUndetermined Status = iota
	StatusAuthorized
	StatusDenied
	StatusRestricted
)

func (s Status) String() string {
	switch s {
	case StatusUndetermined:
		return "undetermined"
	case StatusAuthorized:
		return "authorized"
	case StatusDenied:
		return "denied"
	case StatusRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Oracle reports and requests permission.
type Oracle interface {
	// Check returns the current status without prompting.
	Check(ctx context.Context) (Status, error)
	// Request asks for permission and returns the resulting status.
	Request(ctx context.Context) (Status, error)
}

// Static is an Oracle with a fixed answer. A Request moves it to its granted status.
type Static struct {
	mu       sync.Mutex
	status   Status
	granted  Status
	requests int
}

// NewStatic returns an Oracle reporting status until Request is called, and granted afterwards.
func NewStatic(status, granted Status) *Static {
	return &Static{status: status, granted: granted}
}

// Check returns the current status.
func (s *Static) Check(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, nil
}

// Request switches to the granted status.
func (s *Static) Request(ctx context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.status = s.granted
	return s.status, nil
}

// Requests returns how many times Request was called.
func (s *Static) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Device derives permission from read access to a receiver device node.
type Device struct {
	Path string
}

// Check tests read access to the device.
func (d *Device) Check(ctx context.Context) (Status, error) {
	return statusFromAccess(unix.Access(d.Path, unix.R_OK))
}

// Request cannot prompt for a device node, so it checks again. Granting access is up to whoever
// manages the device's group membership.
func (d *Device) Request(ctx context.Context) (Status, error) {
	return d.Check(ctx)
}

func statusFromAccess(err error) (Status, error) {
	switch {
	case err == nil:
		return StatusAuthorized, nil
	case errors.Is(err, unix.EACCES):
		return StatusDenied, nil
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS):
		return StatusRestricted, nil
	case errors.Is(err, unix.ENOENT):
		// not plugged in yet
		return StatusUndetermined, nil
	default:
		return StatusUndetermined, errors.Wrap(err, "checking device access")
	}
}
