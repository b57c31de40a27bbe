package cli

import (
	"os"
	"syscall"
	"testing"
	"time"
)

func TestWaitForShutdown_Empty(t *testing.T) {
	sig, stop := WaitForShutdown()
	defer stop()

	select {
	case s := <-sig:
		t.Errorf("received %v before any signal was sent", s)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestWaitForShutdown_ReceivesSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal delivery in short mode")
	}

	sig, stop := WaitForShutdown()
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() error = %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Skipf("cannot signal own process: %v", err)
	}

	select {
	case s := <-sig:
		if s != syscall.SIGTERM {
			t.Errorf("signal = %v, want SIGTERM", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered")
	}
}
