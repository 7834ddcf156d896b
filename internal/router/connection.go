// Package router implements the Event Router (E): the per-client state
// machine that validates, stamps, forwards, and accounts events flowing in
// both directions between a client socket and its bound Upstream Session.
package router

import (
	"sync"
	"time"

	"github.com/rapidaai/relay/internal/types"
)

// ClientSocket abstracts the client-facing WebSocket leg so the Router does
// not depend on gorilla/websocket directly; internal/frontend supplies the
// concrete implementation. ReadEvent returns (nil, nil) for a frame that
// failed to parse as JSON (a protocol-level condition the Router handles by
// synthesizing an error event) and (nil, err) only when the socket itself
// failed or closed.
type ClientSocket interface {
	ReadEvent() (types.Event, error)
	WriteEvent(types.Event) error
	Close(code types.CloseCode, reason string) error
}

// ClientConnection is one accepted client socket, bound to a principal and
// (once acquired) an Upstream Session. The Router exclusively owns its
// ResponseState for the connection's lifetime.
type ClientConnection struct {
	ID          string
	PrincipalID string
	AcceptTime  time.Time

	mu                sync.Mutex
	state             types.ResponseState
	currentResponseID string
	rateLimits        []interface{}
	seenFirstEvent    bool
}

// NewClientConnection creates a connection in its initial Idle state.
func NewClientConnection(id, principalID string) *ClientConnection {
	return &ClientConnection{
		ID:          id,
		PrincipalID: principalID,
		AcceptTime:  time.Now(),
		state:       types.Idle,
	}
}

// State returns the connection's current ResponseState.
func (c *ClientConnection) State() types.ResponseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentResponseID returns the response id the connection is currently
// tracking, or "" if none.
func (c *ClientConnection) CurrentResponseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentResponseID
}

// transition atomically applies f to the connection's state, holding the
// lock only for the duration of the transition — never across I/O.
func (c *ClientConnection) transition(f func(state types.ResponseState, responseID string) (types.ResponseState, string)) (types.ResponseState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, c.currentResponseID = f(c.state, c.currentResponseID)
	return c.state, c.currentResponseID
}

// markFirstEvent returns true if this is the first client event observed on
// the connection, recording that the first event has now been seen.
func (c *ClientConnection) markFirstEvent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	first := !c.seenFirstEvent
	c.seenFirstEvent = true
	return first
}

func (c *ClientConnection) setRateLimits(limits []interface{}) {
	c.mu.Lock()
	c.rateLimits = limits
	c.mu.Unlock()
}
