package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/vk/ironrun/internal/ctxlog"
)

// Namespace is the programmatic API installed into the runtime as a global
// object, so scripts can transpile and run further IronScript themselves.
type Namespace interface {
	// Transpile converts IronScript to JavaScript; non-string values yield "".
	Transpile(v any) string
	// LoadAndRunRemote fetches, transpiles and runs the script at url in the
	// background. The returned channel is closed once it settles.
	LoadAndRunRemote(ctx context.Context, url string) <-chan struct{}
}

// Option configures a JS executor.
type Option func(*JS)

// WithSinks adds console sinks.
func WithSinks(sinks ...Sink) Option {
	return func(e *JS) { e.sinks = append(e.sinks, sinks...) }
}

// WithTimeout interrupts a unit that runs longer than d. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *JS) { e.timeout = d }
}

// WithGlobals predefines global bindings visible to every unit.
func WithGlobals(globals map[string]any) Option {
	return func(e *JS) {
		for k, v := range globals {
			e.globals[k] = v
		}
	}
}

// WithNamespace installs api as the global object name.
func WithNamespace(name string, api Namespace) Option {
	return func(e *JS) {
		e.nsName = name
		e.ns = api
	}
}

// JS executes transpiled units in one shared goja runtime.
type JS struct {
	mu sync.Mutex
	vm *goja.Runtime

	sinks   []Sink
	timeout time.Duration
	globals map[string]any
	nsName  string
	ns      Namespace

	// Set for the duration of Run; read by console and namespace callbacks.
	ctx    context.Context
	origin string
}

// New creates an executor with a fresh runtime.
func New(opts ...Option) (*JS, error) {
	e := &JS{
		vm:      goja.New(),
		globals: make(map[string]any),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.registerConsole(); err != nil {
		return nil, err
	}
	for name, v := range e.globals {
		if err := e.vm.Set(name, v); err != nil {
			return nil, fmt.Errorf("setting global %q: %w", name, err)
		}
	}
	if e.ns != nil {
		if err := e.registerNamespace(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Set defines a global binding in the shared context.
func (e *JS) Set(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.Set(name, value)
}

// Run compiles code as a top-level script and runs it. Any failure is logged
// with origin and returned; the caller is never unwound.
func (e *JS) Run(ctx context.Context, code, origin string) error {
	logger := ctxlog.FromContext(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	prevCtx, prevOrigin := e.ctx, e.origin
	e.ctx, e.origin = ctx, origin
	defer func() { e.ctx, e.origin = prevCtx, prevOrigin }()

	err := e.guarded(ctx, code, origin)
	if err != nil {
		logger.Error("Error executing transpiled script.", "origin", origin, "error", err)
		return err
	}
	logger.Debug("Script executed.", "origin", origin)
	return nil
}

// guarded runs code with the context and timeout wired to runtime interrupts.
func (e *JS) guarded(ctx context.Context, code, origin string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("running %s: %w", origin, err)
	}

	g := &interruptGuard{vm: e.vm}
	defer g.close()

	stop := context.AfterFunc(ctx, func() { g.fire(ctx.Err()) })
	defer stop()
	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			g.fire(fmt.Errorf("execution exceeded %s", e.timeout))
		})
		defer timer.Stop()
	}

	return e.exec(code, origin)
}

// exec runs code in the current runtime without taking the lock. It is also
// the entry point for nested runs started by the namespace.
func (e *JS) exec(code, origin string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("running %s: panic: %v", origin, r)
		}
	}()

	prog, err := goja.Compile(origin, code, false)
	if err != nil {
		return fmt.Errorf("compiling %s: %w", origin, err)
	}
	if _, err := e.vm.RunProgram(prog); err != nil {
		return fmt.Errorf("running %s: %w", origin, err)
	}
	return nil
}

// interruptGuard makes sure an interrupt scheduled for one run cannot land
// after that run ended and hit the next one.
type interruptGuard struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	closed bool
}

func (g *interruptGuard) fire(v any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.vm.Interrupt(v)
	}
}

func (g *interruptGuard) close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.vm.ClearInterrupt()
}
