package testutil

import (
	"fmt"
	"net"
	"testing"
	"time"
)

// ListenTCP opens a TCP listener on an OS-assigned loopback port and
// registers a cleanup to close it. Returns the listener and its address.
func ListenTCP(t *testing.T) (net.Listener, string) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, l.Addr().String()
}

// WaitForTCPReady polls addr until a TCP connection succeeds or timeout elapses.
func WaitForTCPReady(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("address %s not ready after %s: %w", addr, timeout, lastErr)
}

// WaitForCleanup polls checkFn until it returns true or timeout elapses,
// failing the test otherwise.
func WaitForCleanup(t *testing.T, checkFn func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if checkFn() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !checkFn() {
		t.Fatalf("condition not met after %s", timeout)
	}
}
