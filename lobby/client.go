package lobby

import "github.com/jacobpatterson1549/rts-masterserver/protocol"

// Handle is the write side of a connected peer. Socket writes must be
// serialized; only the owning session's processor ever calls Write.
type Handle interface {
	Write(m protocol.Message) error
	Close() error
}

// Client is a logged-in session's registry entry: identity, its outbound
// socket handle, and the inbox the state machine consumes.
type Client struct {
	Name   string
	Host   string
	handle Handle
	Inbox  *Inbox
}

// NewClient creates a Client with a fresh, unbounded inbox.
func NewClient(name, host string, handle Handle) *Client {
	return &Client{
		Name:   name,
		Host:   host,
		handle: handle,
		Inbox:  NewInbox(),
	}
}

// Write sends m to the client's socket. Only the client's own session
// processor should call this.
func (c *Client) Write(m protocol.Message) error {
	return c.handle.Write(m)
}

// Close releases the client's socket handle.
func (c *Client) Close() error {
	return c.handle.Close()
}
