// Package recovery turns panics into fatal reports in main and into errors
// in worker goroutines.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// ErrPanic wraps a value recovered from a panicking goroutine
var ErrPanic = errors.New("recovered panic")

// HandlePanic should be deferred at the top of main().
// It reports the panic with its stack trace and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		fatal(r)
		os.Exit(1)
	}
}

// HandlePanicFunc reports the panic, calls cleanup, then exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fatal(r)
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}
}

func fatal(r any) {
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
}

// Recover should be deferred in a worker goroutine that reports its result
// through errp. A panic is logged with its stack and stored in *errp
// wrapped in ErrPanic; the process keeps running.
//
//	go func() {
//		var err error
//		defer func() { done <- err }()
//		defer recovery.Recover(logger, &err)
//		err = s.run()
//	}()
func Recover(logger *slog.Logger, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("recovered panic", "panic", r, "stack", string(debug.Stack()))
	if errp != nil {
		*errp = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}
