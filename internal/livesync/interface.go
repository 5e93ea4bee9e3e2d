// Package livesync maintains the live duplex channel of an open recipe.
//
// # Why Live Sync Exists
//
// Batch runs report their status, and collaborators their edits, over a
// long-lived channel scoped to one recipe. The Channel owns that connection
// and fans incoming events out to any number of in-process listeners.
//
// # Lifecycle
//
// The channel is a small state machine:
//
//	Disconnected --Open--> Connecting --handshake ack--> Connected
//	Connected --transport drop--> Disconnected
//
// A drop is never retried automatically. Reconnect resumes the existing
// transport; Recreate tears it down and dials a fresh one. The channel only
// exists while the caller is an editor holding a usable token: Update tears
// it down on recipe change, credential change or role downgrade.
//
// # Teardown
//
// Teardown removes every handler bound on the transport before
// disconnecting it, so a stale transport can never deliver into the
// listeners of a newer one. Listeners registered with AddListener survive
// teardown and are rebound to the next transport; Close removes them too.
//
// # Thread-Safety
//
// All methods are safe for concurrent use. Listeners are invoked
// synchronously, in registration order, on the transport's event goroutine.
package livesync

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/nodeflow/internal/model"
)

// Well-known event names.
const (
	EventConnect        = "connect"
	EventConnectError   = "connect_error"
	EventDisconnect     = "disconnect"
	EventBatchRunStatus = "batch_run_status"
	EventHello          = "hello"
)

var (
	// ErrNotEditor is returned when the caller's role may not hold a channel.
	ErrNotEditor = errors.New("live channel requires the editor role")
	// ErrNoToken is returned when no auth token is available.
	ErrNoToken = errors.New("live channel requires an auth token")
	// ErrTokenExpired is returned when the auth token is a JWT past its expiry.
	ErrTokenExpired = errors.New("auth token has expired")
	// ErrNoChannel is returned by Reconnect when nothing was opened.
	ErrNoChannel = errors.New("live channel is not open")
)

// State of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Params identify the channel of a recipe and the credentials used for it.
type Params struct {
	RecipeID string
	Token    string
	Provider string
	Role     model.Role
}

// Transport is one duplex connection. It is created disconnected.
//
// Implementations call handlers on their own goroutine. Off MUST remove every
// handler registered for the event.
type Transport interface {
	On(event string, fn func(args ...any))
	Off(event string)
	Connect()
	Disconnect()
	Emit(event string, args ...any) error
}

// Dialer creates transports scoped to a recipe.
type Dialer interface {
	Dial(ctx context.Context, p Params) (Transport, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, p Params) (Transport, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context, p Params) (Transport, error) {
	return f(ctx, p)
}
