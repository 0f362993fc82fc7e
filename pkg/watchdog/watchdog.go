package watchdog

import (
	"context"
	"log/slog"
	"time"
)

// NewWatchdog returns a loop that calls timeout when input has been quiet
// for a full interval. An error from timeout stops the loop. The loop ends
// cleanly when ctx is done or input is closed. Once the loop has returned,
// input is still drained until it closes so a sender never blocks on it.
func NewWatchdog[T any](ctx context.Context, interval time.Duration, timeout func() error, input <-chan T) func() error {
	return func() error {
		t := time.NewTicker(interval)
		defer t.Stop()
		awake := true
		slog.Debug("watchdog started", "timeout", interval)
		for {
			select {
			case <-ctx.Done():
				go drain(input)
				return nil
			case _, ok := <-input:
				if !ok {
					slog.Debug("watchdog input closed")
					return nil
				}
				awake = true
			case <-t.C:
				if !awake {
					slog.Error("watchdog timeout, no readings received", "timeout", interval)
					if err := timeout(); err != nil {
						go drain(input)
						return err
					}
				}
				awake = false
			}
		}
	}
}

func drain[T any](input <-chan T) {
	for range input {
	}
}
