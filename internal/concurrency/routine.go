package concurrency

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a goroutine and delivers its error on the returned channel.
// A panic is recovered and delivered as an error.
func Go(name string, fn func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "routine", name, "panic", r, "stack", string(debug.Stack()))
				errCh <- fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		errCh <- fn()
	}()
	return errCh
}
