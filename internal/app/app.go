package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/ironrun/internal/ctxlog"
	"github.com/vk/ironrun/internal/executor"
	"github.com/vk/ironrun/internal/metrics"
	"github.com/vk/ironrun/internal/relay"
)

// ErrUnitsFailed is returned by Run when FailOnError is set and at least one
// script unit failed.
var ErrUnitsFailed = errors.New("one or more script units failed")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	metrics *metrics.Collector
	console *executor.WriterSink

	relayMu sync.Mutex
	relay   *relay.Relay

	httpServer *http.Server
}

// NewApp is the constructor for the main application. Script console output
// goes to outW and logs go to logW.
func NewApp(outW, logW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: metrics.NewCollector("ironrun"),
		console: executor.NewWriterSink(outW),
	}
}

// Metrics returns the application's collector. This is primarily for testing.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// sinks returns the console sinks every document runtime writes to.
func (a *App) sinks() []executor.Sink {
	out := []executor.Sink{a.console}
	a.relayMu.Lock()
	defer a.relayMu.Unlock()
	if a.relay != nil {
		out = append(out, a.relay)
	}
	return out
}

// connectRelay dials the console relay when one is configured. A relay that
// cannot be reached is reported and skipped; scripts still run.
func (a *App) connectRelay(ctx context.Context) {
	if a.config.Relay == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)
	r, err := relay.Dial(ctx, *a.config.Relay)
	if err != nil {
		logger.Warn("Console relay unavailable, continuing without it.", "error", err)
		return
	}
	a.relayMu.Lock()
	a.relay = r
	a.relayMu.Unlock()
}

func (a *App) closeRelay() {
	a.relayMu.Lock()
	defer a.relayMu.Unlock()
	if a.relay != nil {
		_ = a.relay.Close()
		a.relay = nil
	}
}
