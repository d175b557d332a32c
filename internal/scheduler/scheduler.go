package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/ironrun/internal/ctxlog"
	"github.com/vk/ironrun/internal/unit"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRecorder reports every finished unit to r.
func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// Scheduler drives script units through the pipeline.
type Scheduler struct {
	loader    Loader
	exec      Executor
	transpile TranspileFunc
	recorder  Recorder

	// detached tracks units started without being awaited.
	detached sync.WaitGroup
}

// New creates a Scheduler.
func New(loader Loader, exec Executor, transpile TranspileFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		loader:    loader,
		exec:      exec,
		transpile: transpile,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover takes the single discovery snapshot of src. Elements added to the
// document later are never seen. data-async only detaches remote units.
func Discover(src Source) []*unit.Unit {
	elems := src.Scripts()
	units := make([]*unit.Unit, 0, len(elems))
	for _, el := range elems {
		u := &unit.Unit{
			Index:    el.Index,
			Document: src.Name(),
			Src:      el.Src,
			Inline:   el.Text,
		}
		if el.Async && u.Remote() {
			u.Mode = unit.Detached
		}
		units = append(units, u)
	}
	return units
}

// RunDocument discovers the units of src and runs them.
func (s *Scheduler) RunDocument(ctx context.Context, src Source) *Report {
	units := Discover(src)
	s.Run(ctx, units)
	return &Report{Document: src.Name(), Units: units}
}

// Run moves the cursor over units in order. It returns once the cursor has
// passed the last unit and every detached unit has settled.
func (s *Scheduler) Run(ctx context.Context, units []*unit.Unit) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Sequencing script units.", "count", len(units))

	for _, u := range units {
		if err := ctx.Err(); err != nil {
			u.Fail(unit.StageLoad, err)
			continue
		}
		if u.Mode == unit.Detached {
			s.Start(ctx, u)
			continue
		}
		s.Process(ctx, u)
	}

	s.Wait()
	logger.Debug("All script units settled.", "count", len(units))
}

// Start processes u on its own goroutine. The returned channel is closed when
// u reaches a terminal status.
func (s *Scheduler) Start(ctx context.Context, u *unit.Unit) <-chan struct{} {
	done := make(chan struct{})
	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		defer close(done)
		s.Process(ctx, u)
	}()
	return done
}

// Wait blocks until every started detached unit has settled.
func (s *Scheduler) Wait() {
	s.detached.Wait()
}

// Process runs one unit through load, transpile and execute. All failures are
// contained here.
func (s *Scheduler) Process(ctx context.Context, u *unit.Unit) {
	logger := ctxlog.FromContext(ctx).With("element", u.Ref(), "mode", u.Mode.String())
	start := time.Now()
	stage := unit.StageLoad

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			u.Fail(stage, err)
			logger.Error("Error processing script.", "stage", stage.String(), "error", err)
		}
		s.recorder.RecordUnit(u.Mode.String(), u.Status().String(), time.Since(start))
	}()

	if st := u.Status(); st != unit.Pending {
		logger.Warn("Script unit already processed, skipping.", "status", st.String())
		return
	}

	raw, err := s.loader.Load(ctx, u)
	if err != nil {
		u.Fail(unit.StageLoad, err)
		logger.Error("Failed to load script.", "error", err)
		return
	}
	if err := u.SetRaw(raw); err != nil {
		logger.Warn("Script unit changed state while loading.", "error", err)
		return
	}

	stage = unit.StageTranspile
	if err := u.SetHost(s.transpile(raw)); err != nil {
		logger.Warn("Script unit changed state while transpiling.", "error", err)
		return
	}

	stage = unit.StageExecute
	if err := s.exec.Run(ctx, u.Host(), u.Origin()); err != nil {
		u.Fail(unit.StageExecute, err)
		return
	}
	if err := u.Advance(unit.Executed); err != nil {
		logger.Warn("Script unit changed state while executing.", "error", err)
		return
	}
	logger.Debug("Script unit executed.")
}
