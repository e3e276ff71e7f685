// Package testutils contains helpers shared by locmgr tests.
package testutils

import (
	"go.uber.org/goleak"
)

// VerifyTestMain runs the tests and fails if any goroutine is still running afterwards, such as a
// receiver reader or a deadline timer that was never disarmed. The rotation goroutine of a log
// file is allowed to outlive its logger.
func VerifyTestMain(m goleak.TestingM, opts ...goleak.Option) {
	opts = append(opts, goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"))
	goleak.VerifyTestMain(m, opts...)
}
