// Package middleware guards nudge's entry points against panics. A crash
// inside a shell hook must never leave the user's prompt broken, so every
// panic becomes a logged error and a fixed exit code.
package middleware

import (
	"fmt"
	"runtime/debug"

	"nudge/internal/logger"
)

// PanicExitCode is the exit status after a recovered panic.
const PanicExitCode = 2

// RecoveryFunc handles a recovered panic
type RecoveryFunc func(recovered any, stack []byte)

// DefaultRecovery logs the panic, with the stack at debug level.
func DefaultRecovery(recovered any, stack []byte) {
	logger.Error("panic recovered", "error", fmt.Sprintf("%v", recovered))
	logger.Debug("panic stack", "stack", string(stack))
}

// Run calls fn and returns its exit code, or PanicExitCode if it panics.
func Run(fn func() int) int {
	return RunWithRecovery(fn, DefaultRecovery)
}

// RunWithRecovery is Run with a custom recovery function.
func RunWithRecovery(fn func() int, recovery RecoveryFunc) (code int) {
	defer func() {
		if r := recover(); r != nil {
			recovery(r, debug.Stack())
			code = PanicExitCode
		}
	}()
	return fn()
}

// SafeCall calls a function safely, turning a panic into an error
func SafeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("panic recovered in SafeCall", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
