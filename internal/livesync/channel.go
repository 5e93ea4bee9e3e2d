package livesync

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/vk/nodeflow/internal/metrics"
)

type listener struct {
	id int
	fn func(args ...any)
}

// Channel is the live channel of one open recipe.
type Channel struct {
	dialer  Dialer
	metrics *metrics.Registry
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	state     State
	params    Params
	transport Transport
	bound     []string // events bound on transport, in bind order

	listenersMu sync.Mutex
	listeners   map[string][]listener
	nextID      int
}

// NewChannel creates a disconnected channel. m may be nil.
func NewChannel(ctx context.Context, dialer Dialer, m *metrics.Registry) *Channel {
	c := &Channel{
		dialer:    dialer,
		metrics:   m,
		logger:    ctxlog.FromContext(ctx).With("component", "livesync"),
		now:       time.Now,
		listeners: make(map[string][]listener),
	}
	m.SetChannelState(StateDisconnected.String())
	return c
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Params returns the parameters of the current or last channel.
func (c *Channel) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Open dials a channel for p, tearing down any existing one first. It
// returns an eligibility error, without dialing, when p may not hold a
// channel.
func (c *Channel) Open(ctx context.Context, p Params) error {
	if err := p.Eligible(c.now()); err != nil {
		c.logger.Debug("Live channel not opened.", "recipe_id", p.RecipeID, "reason", err)
		return err
	}

	c.mu.Lock()
	c.teardownLocked("reopen")
	c.params = p
	t, err := c.dialLocked(ctx)
	c.mu.Unlock()
	return connect(t, err)
}

// Reconnect resumes the existing transport after a drop. It is a no-op while
// connecting or connected.
func (c *Channel) Reconnect() error {
	c.mu.Lock()
	t := c.transport
	if t == nil {
		c.mu.Unlock()
		return ErrNoChannel
	}
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.logger.Debug("Resuming live channel.", "recipe_id", c.params.RecipeID)
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	t.Connect()
	return nil
}

// Recreate tears the transport down and dials a fresh one with the current
// parameters.
func (c *Channel) Recreate(ctx context.Context) error {
	c.mu.Lock()
	if c.params.RecipeID == "" {
		c.mu.Unlock()
		return ErrNoChannel
	}
	c.teardownLocked("recreate")
	if err := c.params.Eligible(c.now()); err != nil {
		c.mu.Unlock()
		return err
	}
	t, err := c.dialLocked(ctx)
	c.mu.Unlock()
	return connect(t, err)
}

// Update applies new parameters. The channel is torn down when the recipe,
// the credentials or the role changed, and reopened when p is still
// eligible. Unchanged parameters keep the current channel, whatever its state.
func (c *Channel) Update(ctx context.Context, p Params) error {
	c.mu.Lock()
	if c.transport != nil && p == c.params {
		c.mu.Unlock()
		return nil
	}
	if c.transport != nil {
		c.teardownLocked(changeReason(c.params, p))
	}
	c.params = p

	if err := p.Eligible(c.now()); err != nil {
		c.mu.Unlock()
		c.logger.Debug("Live channel stays closed.", "recipe_id", p.RecipeID, "reason", err)
		return nil
	}
	t, err := c.dialLocked(ctx)
	c.mu.Unlock()
	return connect(t, err)
}

// connect starts a freshly dialed transport outside the channel lock, since
// transports may deliver events synchronously.
func connect(t Transport, err error) error {
	if err != nil {
		return err
	}
	t.Connect()
	return nil
}

func changeReason(old, p Params) string {
	switch {
	case old.RecipeID != p.RecipeID:
		return "recipe_changed"
	case old.Token != p.Token || old.Provider != p.Provider:
		return "credentials_changed"
	default:
		return "role_changed"
	}
}

// Emit sends an event on the current transport.
func (c *Channel) Emit(event string, args ...any) error {
	c.mu.Lock()
	t, state := c.transport, c.state
	c.mu.Unlock()
	if t == nil || state != StateConnected {
		return fmt.Errorf("cannot emit %q: %w", event, ErrNoChannel)
	}
	return t.Emit(event, args...)
}

// Close tears the channel down and removes every listener.
func (c *Channel) Close() {
	c.mu.Lock()
	c.teardownLocked("close")
	c.params = Params{}
	c.mu.Unlock()

	c.listenersMu.Lock()
	c.listeners = make(map[string][]listener)
	c.listenersMu.Unlock()
}

// AddListener subscribes fn to an event and returns a function that
// unsubscribes it. Listeners of one event run in registration order.
func (c *Channel) AddListener(event string, fn func(args ...any)) func() {
	c.listenersMu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[event] = append(c.listeners[event], listener{id: id, fn: fn})
	c.listenersMu.Unlock()

	c.mu.Lock()
	if c.transport != nil {
		c.bindLocked(c.transport, event)
	}
	c.mu.Unlock()

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		c.listeners[event] = slices.DeleteFunc(c.listeners[event], func(l listener) bool { return l.id == id })
		if len(c.listeners[event]) == 0 {
			delete(c.listeners, event)
		}
	}
}

// dialLocked creates and binds a transport for c.params. The caller starts it
// after releasing the lock.
func (c *Channel) dialLocked(ctx context.Context) (Transport, error) {
	t, err := c.dialer.Dial(ctx, c.params)
	if err != nil {
		c.logger.Error("Failed to create live channel transport.", "recipe_id", c.params.RecipeID, "error", err)
		return nil, fmt.Errorf("failed to dial live channel: %w", err)
	}
	c.transport = t

	c.bindLocked(t, EventConnect)
	c.bindLocked(t, EventConnectError)
	c.bindLocked(t, EventDisconnect)
	c.listenersMu.Lock()
	events := make([]string, 0, len(c.listeners))
	for event := range c.listeners {
		events = append(events, event)
	}
	c.listenersMu.Unlock()
	slices.Sort(events)
	for _, event := range events {
		c.bindLocked(t, event)
	}

	c.logger.Debug("Opening live channel.", "recipe_id", c.params.RecipeID)
	c.setStateLocked(StateConnecting)
	return t, nil
}

// bindLocked registers the channel's dispatcher for event on t, once.
func (c *Channel) bindLocked(t Transport, event string) {
	if slices.Contains(c.bound, event) {
		return
	}
	c.bound = append(c.bound, event)
	t.On(event, func(args ...any) {
		c.handle(t, event, args)
	})
}

func (c *Channel) handle(t Transport, event string, args []any) {
	c.mu.Lock()
	if c.transport != t {
		c.mu.Unlock()
		return
	}
	recipeID := c.params.RecipeID
	switch event {
	case EventConnect:
		c.setStateLocked(StateConnected)
		c.logger.Info("Live channel connected.", "recipe_id", recipeID)
	case EventConnectError:
		c.setStateLocked(StateDisconnected)
		c.logger.Warn("Live channel connection failed.", "recipe_id", c.params.RecipeID, "error", firstArg(args))
	case EventDisconnect:
		c.setStateLocked(StateDisconnected)
		c.logger.Info("Live channel disconnected.", "recipe_id", c.params.RecipeID, "reason", firstArg(args))
	}
	c.mu.Unlock()

	if event == EventConnect {
		if err := t.Emit(EventHello, map[string]any{"recipeId": recipeID}); err != nil {
			c.logger.Debug("Failed to emit hello.", "error", err)
		}
	}
	c.deliver(event, args)
}

func (c *Channel) deliver(event string, args []any) {
	c.listenersMu.Lock()
	subscribers := slices.Clone(c.listeners[event])
	c.listenersMu.Unlock()

	if len(subscribers) > 0 {
		c.metrics.RecordChannelEvent(event)
	}
	for _, l := range subscribers {
		l.fn(args...)
	}
}

// teardownLocked unbinds every handler, then disconnects the transport.
func (c *Channel) teardownLocked(reason string) {
	t := c.transport
	if t == nil {
		return
	}
	for _, event := range c.bound {
		t.Off(event)
	}
	c.bound = nil
	c.transport = nil
	t.Disconnect()
	c.setStateLocked(StateDisconnected)
	c.logger.Debug("Live channel torn down.", "recipe_id", c.params.RecipeID, "reason", reason)
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.metrics.SetChannelState(s.String())
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}
