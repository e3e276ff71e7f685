package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic(StateDisabled, StateEnabled)

	state, err := s.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, StateDisabled)

	state, err = s.Open(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, StateEnabled)
	test.That(t, s.Opened(), test.ShouldEqual, 1)
	test.That(t, state.String(), test.ShouldEqual, "enabled")
}

func TestDevicePresent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gps0")
	d := &DevicePresent{Path: path}

	state, err := d.Get(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, StateDisabled)

	test.That(t, os.WriteFile(path, nil, 0o600), test.ShouldBeNil)
	state, err = d.Open(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, state, test.ShouldEqual, StateEnabled)
}
