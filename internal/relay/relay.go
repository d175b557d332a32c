// Package relay forwards script console output to a socket.io server.
package relay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/ironrun/internal/ctxlog"
	"github.com/vk/ironrun/internal/executor"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	DefaultEvent          = "console"
	DefaultConnectTimeout = 15 * time.Second
)

// Config describes the relay target.
type Config struct {
	URL                string
	Namespace          string
	Event              string
	ConnectTimeout     time.Duration
	InsecureSkipVerify bool
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "/"
	}
	if c.Event == "" {
		c.Event = DefaultEvent
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	return c
}

// Relay is an executor.Sink backed by a connected socket.io client.
type Relay struct {
	io     *socket.Socket
	event  string
	logger *slog.Logger
}

var _ executor.Sink = (*Relay)(nil)

// Dial connects to the socket.io server and waits for the connect event.
func Dial(ctx context.Context, cfg Config) (*Relay, error) {
	cfg = cfg.withDefaults()
	logger := ctxlog.FromContext(ctx).With("component", "relay", "url", cfg.URL)

	baseURL, path, err := splitURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts := socket.DefaultOptions()
	opts.SetPath(path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(cfg.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Console relay connected.", "sid", io.Id())
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting console relay.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Relay{io: io, event: cfg.Event, logger: logger}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
}

// Emit forwards one console entry. Entries are dropped while disconnected.
func (r *Relay) Emit(_ context.Context, e executor.Entry) {
	if !r.io.Connected() {
		r.logger.Debug("Console relay disconnected, dropping entry.", "origin", e.Origin)
		return
	}
	r.io.Emit(r.event, payload(e))
}

// Close disconnects the client.
func (r *Relay) Close() error {
	r.logger.Info("Closing console relay.", "sid", r.io.Id())
	r.io.Disconnect()
	return nil
}

func payload(e executor.Entry) map[string]any {
	return map[string]any{
		"level":   e.Level,
		"origin":  e.Origin,
		"message": e.Message,
	}
}

// splitURL separates the manager base URL from the engine.io path.
func splitURL(raw string) (string, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return "", "", fmt.Errorf("unsupported relay URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("relay URL %q has no host", raw)
	}
	path := u.Path
	if path == "" || path == "/" {
		path = "/socket.io/"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), path, nil
}
