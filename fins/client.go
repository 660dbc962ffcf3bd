package fins

import (
	"sync"
	"time"
)

// Client pairs a Transport with the FINS addressing/service-id state needed
// to build command headers. One Client belongs to exactly one Poller
// (spec.md §4.4/§5 — never call Send concurrently against the same
// Transport). Kept from the teacher's Client struct shape, stripped of the
// TCP connect handshake and response-channel map that UDP's synchronous
// request/reply doesn't need.
type Client struct {
	mu sync.Mutex

	transport *Transport
	src       finsAddress
	dst       finsAddress
	sid       byte
}

// NewClient dials transport to plcAddr and returns a ready Client.
func NewClient(localAddr, plcAddr Address, timeout time.Duration) (*Client, error) {
	transport, err := NewTransport(plcAddr.udpAddress, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		transport: transport,
		src:       localAddr.finsAddress,
		dst:       plcAddr.finsAddress,
	}, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Connected reports the underlying Transport's health.
func (c *Client) Connected() bool {
	return c.transport.Connected()
}

// LastActivity reports the underlying Transport's last successful receive.
func (c *Client) LastActivity() time.Time {
	return c.transport.LastActivity()
}

// nextHeader advances the service-id counter (wrapping 1..255, 0 reserved)
// and returns a fresh command header, matching the teacher's header.go
// incrementSid/nextHeader but without the response-channel collision check
// that only applied to the TCP multiplexed listener.
func (c *Client) nextHeader() Header {
	c.mu.Lock()
	c.sid++
	if c.sid == 0 {
		c.sid = 1
	}
	sid := c.sid
	c.mu.Unlock()
	return defaultCommandHeader(c.src, c.dst, sid)
}

// sendFrame appends frame's header-less body is not applicable here: frame
// already includes the header built by nextHeader. sendFrame transmits it
// and decodes the response.
func (c *Client) sendFrame(frame []byte) (Response, error) {
	raw, err := c.transport.Send(frame)
	if err != nil {
		return Response{}, err
	}
	return DecodeResponse(raw)
}
