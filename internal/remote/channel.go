package remote

import (
	"context"
	"fmt"
	"sync/atomic"
)

// State is the lifecycle position of a command channel. A channel is in
// exactly one state at a time.
type State int32

const (
	StateNew State = iota
	StateResolvingCapability
	StateConnecting
	StateAwaitingGrant
	StateAwaitingAuthorization
	StateAuthorized
	StateUnauthorized
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateResolvingCapability:
		return "resolving-capability"
	case StateConnecting:
		return "connecting"
	case StateAwaitingGrant:
		return "awaiting-grant"
	case StateAwaitingAuthorization:
		return "awaiting-authorization"
	case StateAuthorized:
		return "authorized"
	case StateUnauthorized:
		return "unauthorized"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Channel sends remote-control key presses to a TV. Implementations
// serialize SendKey calls; Close may be called from any goroutine and makes
// pending and future SendKey calls fail with ConnectionClosed.
type Channel interface {
	Connect(ctx context.Context) error
	SendKey(ctx context.Context, key string) error
	Close() error
	State() State
}

// stateCell holds a State. Closed is terminal: once stored, later
// transitions are ignored.
type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) load() State { return State(c.v.Load()) }

// set moves to s unless the channel is already closed.
func (c *stateCell) set(s State) bool {
	for {
		cur := c.v.Load()
		if State(cur) == StateClosed {
			return false
		}
		if c.v.CompareAndSwap(cur, int32(s)) {
			return true
		}
	}
}

func (c *stateCell) close() {
	c.v.Store(int32(StateClosed))
}
