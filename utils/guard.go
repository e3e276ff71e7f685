package utils

// Guard runs a cleanup function on return unless Success was called first. It is meant for
// constructors that acquire a resource and may still fail afterwards:
//
//	db, err := sql.Open(...)
//	guard := NewGuard(func() { db.Close() })
//	defer guard.OnFail()
//	if err := migrate(db); err != nil { return nil, err }
//	guard.Success()
//	return db, nil
type Guard struct {
	cleanup func()
	success bool
}

// NewGuard returns a Guard that calls onFail unless Success is called.
func NewGuard(onFail func()) *Guard {
	return &Guard{cleanup: onFail}
}

// OnFail runs the cleanup if the guarded function did not succeed.
func (g *Guard) OnFail() {
	if !g.success && g.cleanup != nil {
		g.cleanup()
	}
}

// Success marks the guarded function as succeeded.
func (g *Guard) Success() {
	g.success = true
}
