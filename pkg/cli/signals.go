package cli

import (
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that ask the proxy to exit.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// WaitForShutdown returns a channel that receives the first shutdown
// signal. Call stop to restore default signal handling.
func WaitForShutdown() (sig <-chan os.Signal, stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, ShutdownSignals...)
	return ch, func() { signal.Stop(ch) }
}
