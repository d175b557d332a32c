package scheduler

import (
	"context"
	"time"

	"github.com/vk/ironrun/internal/document"
	"github.com/vk/ironrun/internal/unit"
)

// Loader yields a unit's raw IronScript text.
type Loader interface {
	Load(ctx context.Context, u *unit.Unit) (string, error)
}

// Executor runs host text. It logs its own failures; the returned error is
// only used for status bookkeeping.
type Executor interface {
	Run(ctx context.Context, code, origin string) error
}

// TranspileFunc rewrites IronScript into host text.
type TranspileFunc func(string) string

// Recorder observes finished units.
type Recorder interface {
	RecordUnit(mode, status string, d time.Duration)
}

// Source is a parsed host document.
type Source interface {
	Name() string
	Scripts() []document.Element
}

type nopRecorder struct{}

func (nopRecorder) RecordUnit(string, string, time.Duration) {}
