package common

import (
	"runtime/debug"
)

func HandlePanic() {
	if r := recover(); r != nil {
		Logger.Sugar().Errorf("catch panic: %v \n stack: %s", r, string(debug.Stack()))
	}
}

// Go runs fn on a new goroutine that logs instead of crashing on panic.
func Go(fn func()) {
	go func() {
		defer HandlePanic()
		fn()
	}()
}
