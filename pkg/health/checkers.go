package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// LoadedCheck fails while loaded reports false, e.g. before a required
// document has been read.
func LoadedCheck(what string, loaded func() bool) CheckFunc {
	return func(_ context.Context) error {
		if !loaded() {
			return errors.Errorf("%s not loaded", what)
		}
		return nil
	}
}
