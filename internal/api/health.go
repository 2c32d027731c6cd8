package api

import (
	"context"
	"fmt"
	"net"
)

// Reachable dials the API host. It is used as a non-critical readiness
// check, so it never touches the session or the circuit breaker.
func (c *Client) Reachable(ctx context.Context) error {
	host := c.baseURL.Hostname()
	port := c.baseURL.Port()
	if port == "" {
		port = "443"
		if c.baseURL.Scheme == "http" {
			port = "80"
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return fmt.Errorf("dial lms api: %w", err)
	}
	return conn.Close()
}
