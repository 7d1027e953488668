//go:build linux

package recorder

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// WatchRotateSignal registers SIGHUP as the reopen-on-rotate trigger
// (§4.10) and returns a stop function. External log rotation sends
// SIGHUP after renaming the recording file out from under this
// process; the handler only flips an atomic flag, so it is safe to run
// on the signal-handling goroutine and never blocks waiting on r.mu.
func (r *Recorder) WatchRotateSignal() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGHUP)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ch:
				r.RequestReopen()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
