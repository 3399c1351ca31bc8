package netutil

import (
	"net"
	"time"
)

// WaitForListener polls addr until a TCP connection succeeds or timeout
// elapses, returning the last dial error on timeout. No binary or test in
// this module calls it; the servers and docsh use net.Listen and
// net.DialTimeout directly.
func WaitForListener(addr string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for time.Since(start) < timeout {
		if lastErr = tryDial(addr); lastErr == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	return lastErr
}

func tryDial(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err == nil {
		err = conn.Close()
	}
	return err
}
