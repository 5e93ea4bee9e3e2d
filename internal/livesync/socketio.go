package livesync

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/nodeflow/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketIODialer dials socket.io transports over WebSocket.
type SocketIODialer struct {
	// URL of the socket.io endpoint. Its path, if any, is used as the
	// engine path unless Path is set.
	URL       string
	Path      string
	Namespace string
	Timeout   time.Duration
}

var _ Dialer = (*SocketIODialer)(nil)

// Dial builds an unconnected socket authenticated for p. Reconnection is left
// to the Channel.
func (d *SocketIODialer) Dial(ctx context.Context, p Params) (Transport, error) {
	parsedURL, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid live channel URL %q", d.URL)
	}

	opts := socket.DefaultOptions()
	switch {
	case d.Path != "":
		opts.SetPath(d.Path)
	case parsedURL.Path != "" && parsedURL.Path != "/":
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)
	opts.SetAutoConnect(false)
	if d.Timeout > 0 {
		opts.SetTimeout(d.Timeout)
	}
	opts.SetAuth(map[string]any{"token": p.Token, "provider": p.Provider})
	opts.SetQuery(url.Values{"recipeId": {p.RecipeID}})

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	namespace := d.Namespace
	if namespace == "" {
		namespace = "/"
	}
	io := manager.Socket(namespace, opts)

	return &socketTransport{
		io:     io,
		logger: ctxlog.FromContext(ctx).With("transport", "socketio", "url", baseURL),
	}, nil
}

type socketTransport struct {
	io     *socket.Socket
	logger *slog.Logger
}

func (t *socketTransport) On(event string, fn func(args ...any)) {
	if err := t.io.On(types.EventName(event), fn); err != nil {
		t.logger.Warn("Failed to bind socket event.", "event", event, "error", err)
	}
}

func (t *socketTransport) Off(event string) {
	t.io.RemoveAllListeners(types.EventName(event))
}

func (t *socketTransport) Connect() {
	t.logger.Debug("Connecting socket.")
	t.io.Connect()
}

func (t *socketTransport) Disconnect() {
	t.logger.Debug("Disconnecting socket.", "sid", t.io.Id())
	t.io.Disconnect()
}

func (t *socketTransport) Emit(event string, args ...any) error {
	return t.io.Emit(event, args...)
}
