package permission

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"golang.org/x/sys/unix"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	o := NewStatic(StatusUndetermined, StatusAuthorized)

	status, err := o.Check(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusUndetermined)

	status, err = o.Request(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusAuthorized)
	test.That(t, o.Requests(), test.ShouldEqual, 1)

	status, err = o.Check(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusAuthorized)
}

func TestDevice(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "ttyUSB0")

	d := &Device{Path: path}
	status, err := d.Check(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusUndetermined)

	test.That(t, os.WriteFile(path, nil, 0o600), test.ShouldBeNil)
	status, err = d.Request(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, StatusAuthorized)
}

func TestStatusFromAccess(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status Status
		fails  bool
	}{
		{nil, StatusAuthorized, false},
		{unix.EACCES, StatusDenied, false},
		{unix.EPERM, StatusRestricted, false},
		{unix.EROFS, StatusRestricted, false},
		{unix.ENOENT, StatusUndetermined, false},
		{unix.EIO, StatusUndetermined, true},
	} {
		status, err := statusFromAccess(tc.err)
		test.That(t, status, test.ShouldEqual, tc.status)
		if tc.fails {
			test.That(t, err, test.ShouldNotBeNil)
		} else {
			test.That(t, err, test.ShouldBeNil)
		}
	}
	test.That(t, StatusRestricted.String(), test.ShouldEqual, "restricted")
	test.That(t, Status(42).String(), test.ShouldEqual, "unknown")
}
