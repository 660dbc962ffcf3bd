package fins

import (
	"fmt"
	"time"
)

// Reconnect tears down the current UDP socket and redials it with backoff,
// matching the teacher's healthOps.go Reconnect but adapted to UDP (no
// FINS-TCP connection handshake to repeat, no listener goroutine to
// restart).
func (c *Client) Reconnect() error {
	c.mu.Lock()
	remote := c.transport.remote
	timeout := c.transport.timeout
	c.mu.Unlock()

	c.transport.Close()

	backoffIntervals := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
	}

	var lastErr error
	for _, backoff := range backoffIntervals {
		time.Sleep(backoff)

		transport, err := NewTransport(remote, timeout)
		if err != nil {
			lastErr = err
			continue
		}

		c.mu.Lock()
		c.transport = transport
		c.mu.Unlock()
		return nil
	}

	return fmt.Errorf("failed to reconnect after multiple attempts: %w", lastErr)
}

// Ping confirms the PLC is reachable via a clock read, matching the
// teacher's Ping/Pong shape.
func (c *Client) Ping() error {
	_, err := c.ClockRead()
	return err
}
