//go:build !windows && !plan9 && !wasm

package bridge

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// NotifySignals routes SIGINT and SIGTERM to sd. Only the calling goroutine's
// process-level registration receives them; the poller is never a target and
// stops solely through cooperative cancellation. The returned func detaches
// the handlers and waits for the watcher goroutine to exit.
func NotifySignals(sd *Shutdown, log zerolog.Logger) (stop func()) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range sigChan {
			reason := reasonForSignal(s)
			if sd.Request(reason) {
				log.Warn().Stringer("signal", s).Stringer("reason", reason).
					Msg("shutdown requested")
			} else {
				log.Warn().Stringer("signal", s).Stringer("reason", sd.Reason()).
					Msg("shutdown already in progress")
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(sigChan)
		<-done
	}
}

func reasonForSignal(s os.Signal) Reason {
	switch s {
	case syscall.SIGINT:
		return ReasonInterrupt
	case syscall.SIGTERM:
		return ReasonTerminate
	default:
		return ReasonNone
	}
}
