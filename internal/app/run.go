package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/ironrun/internal/ctxlog"
	"github.com/vk/ironrun/internal/document"
	"github.com/vk/ironrun/internal/fsutil"
	"github.com/vk/ironrun/internal/scheduler"
	"github.com/vk/ironrun/internal/unit"
	"github.com/vk/ironrun/iron"
	"golang.org/x/sync/errgroup"
)

// Summary aggregates the outcome of every document run.
type Summary struct {
	mu        sync.Mutex
	Documents int
	Executed  int
	Failed    int
}

func (s *Summary) add(r *scheduler.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Documents++
	s.Executed += r.Count(unit.Executed)
	s.Failed += len(r.Failed())
}

// Run executes every configured document once and, in watch mode, keeps
// re-running documents as they change until ctx is canceled.
func (a *App) Run(ctx context.Context) (*Summary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("App.Run method started.")

	a.startHealthcheckServer(ctx)
	defer a.closeHealthcheckServer(ctx)

	a.connectRelay(ctx)
	defer a.closeRelay()

	docs, err := fsutil.Expand(a.config.Paths, DocumentExtensions...)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, errors.New("no host documents found")
	}
	logger.Info("Starting document runs.", "documents", len(docs), "workers", a.config.Workers)

	summary := &Summary{}
	var g errgroup.Group
	g.SetLimit(a.config.Workers)
	for _, path := range docs {
		g.Go(func() error {
			report, err := a.runDocument(ctx, path)
			if err != nil {
				return err
			}
			summary.add(report)
			return nil
		})
	}
	runErr := g.Wait()

	logger.Info("Document runs finished.",
		"documents", summary.Documents, "executed", summary.Executed, "failed", summary.Failed)

	if runErr != nil {
		return summary, runErr
	}

	if a.config.Watch {
		if err := a.watch(ctx, docs); err != nil {
			return summary, err
		}
	}

	if a.config.FailOnError && summary.Failed > 0 {
		return summary, ErrUnitsFailed
	}
	return summary, nil
}

// runDocument parses one host document and runs its units in a fresh
// runtime. Unit failures are part of the report, not errors.
func (a *App) runDocument(ctx context.Context, path string) (*scheduler.Report, error) {
	runID := uuid.New().String()[:8]
	ctx = ctxlog.With(ctx, "document", path, "run_id", runID)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	doc, err := document.ParseFile(path, a.config.ScriptType)
	if err != nil {
		a.metrics.RecordDocument(true)
		return nil, fmt.Errorf("loading document: %w", err)
	}
	logger.Debug("Document parsed.", "scripts", len(doc.Scripts()))

	rt, err := iron.NewRuntime(
		iron.WithDocument(doc.Name()),
		iron.WithBase(doc.Base()),
		iron.WithSinks(a.sinks()...),
		iron.WithGlobals(a.config.Globals),
		iron.WithExecutionTimeout(a.config.ExecutionTimeout),
		iron.WithFetchTimeout(a.config.FetchTimeout),
		iron.WithUserAgent(a.config.UserAgent),
		iron.WithRecorder(a.metrics),
		iron.WithFetchObserver(a.metrics),
	)
	if err != nil {
		a.metrics.RecordDocument(true)
		return nil, fmt.Errorf("creating runtime for %s: %w", path, err)
	}

	report := rt.RunDocument(ctx, doc)
	failed := len(report.Failed())
	a.metrics.RecordDocument(failed > 0)

	logger.Info("Document finished.",
		"units", len(report.Units),
		"executed", report.Count(unit.Executed),
		"failed", failed,
		"duration", time.Since(start).String(),
	)
	return report, nil
}
