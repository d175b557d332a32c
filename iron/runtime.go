package iron

import (
	"context"
	"sync/atomic"

	"github.com/vk/ironrun/internal/executor"
	"github.com/vk/ironrun/internal/loader"
	"github.com/vk/ironrun/internal/scheduler"
	"github.com/vk/ironrun/internal/unit"
)

// Runtime runs the IronScript units of one host document.
type Runtime struct {
	document string
	exec     *executor.JS
	loader   *loader.Loader
	sched    *scheduler.Scheduler

	// next numbers units submitted through LoadAndRunRemote after the
	// document's own elements.
	next atomic.Int64
}

var _ executor.Namespace = (*Runtime)(nil)

// NewRuntime creates a Runtime with a fresh JavaScript context.
func NewRuntime(opts ...Option) (*Runtime, error) {
	o := &options{document: "document"}
	for _, opt := range opts {
		opt(o)
	}

	r := &Runtime{document: o.document}

	exec, err := executor.New(
		executor.WithSinks(o.sinks...),
		executor.WithGlobals(o.globals),
		executor.WithTimeout(o.execTimeout),
		executor.WithNamespace(NamespaceName, r),
	)
	if err != nil {
		return nil, err
	}
	r.exec = exec

	fetch := append([]loader.Option{loader.WithBase(o.base)}, o.fetch...)
	r.loader = loader.New(fetch...)

	var schedOpts []scheduler.Option
	if o.recorder != nil {
		schedOpts = append(schedOpts, scheduler.WithRecorder(o.recorder))
	}
	r.sched = scheduler.New(r.loader, r.exec, Transpile, schedOpts...)

	return r, nil
}

// Transpile implements executor.Namespace.
func (r *Runtime) Transpile(v any) string {
	return TranspileValue(v)
}

// Run transpiles text and runs it in the shared context right away. Failures
// are logged with origin; the error is returned for callers that care.
func (r *Runtime) Run(ctx context.Context, text, origin string) error {
	if origin == "" {
		origin = NamespaceName + ".run"
	}
	return r.exec.Run(ctx, Transpile(text), origin)
}

// LoadAndRunRemote fetches, transpiles and runs the script at url in the
// background. The returned channel is closed once the unit settled, whether
// it executed or failed.
func (r *Runtime) LoadAndRunRemote(ctx context.Context, url string) <-chan struct{} {
	u := &unit.Unit{
		Index:    int(r.next.Add(1) - 1),
		Document: r.document,
		Src:      url,
		Mode:     unit.Detached,
	}
	return r.sched.Start(ctx, u)
}

// RunDocument discovers the document's units and runs them in order. It
// returns once every unit, detached ones included, has settled.
func (r *Runtime) RunDocument(ctx context.Context, doc scheduler.Source) *scheduler.Report {
	units := scheduler.Discover(doc)
	r.next.Store(int64(len(units)))
	r.sched.Run(ctx, units)
	return &scheduler.Report{Document: doc.Name(), Units: units}
}

// Set defines a global binding in the shared context.
func (r *Runtime) Set(name string, v any) error {
	return r.exec.Set(name, v)
}

// Wait blocks until every background unit has settled.
func (r *Runtime) Wait() {
	r.sched.Wait()
}
