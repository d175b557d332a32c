// Package unit defines the Script Unit: one DSL-tagged element discovered in a
// host document, together with its execution mode and lifecycle status.
package unit

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Mode selects how the sequencing cursor treats a unit.
type Mode int

const (
	// Ordered units complete before the cursor advances.
	Ordered Mode = iota
	// Detached units are started and the cursor moves on immediately.
	Detached
)

func (m Mode) String() string {
	if m == Detached {
		return "detached"
	}
	return "ordered"
}

// Status is the position of a unit in its lifecycle. Values only ever grow.
type Status int32

const (
	Pending Status = iota
	Loaded
	Transpiled
	Executed
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Transpiled:
		return "transpiled"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == Executed || s == Failed
}

// Stage names the pipeline step a failure happened in.
type Stage int

const (
	StageNone Stage = iota
	StageLoad
	StageTranspile
	StageExecute
)

func (s Stage) String() string {
	switch s {
	case StageLoad:
		return "load"
	case StageTranspile:
		return "transpile"
	case StageExecute:
		return "execute"
	default:
		return "none"
	}
}

// Unit is a single discovered script element.
type Unit struct {
	// Index is the element's position among the discovered elements of its document.
	Index int
	// Document names the host document the element was discovered in.
	Document string
	// Src is the remote location; empty for inline units.
	Src string
	// Inline is the element's literal text content.
	Inline string
	// Mode is Ordered unless the element opted into detached execution.
	Mode Mode

	status atomic.Int32

	mu       sync.Mutex
	raw      string
	host     string
	failedAt Stage
	err      error
}

// Remote reports whether the unit's text has to be fetched.
func (u *Unit) Remote() bool {
	return u.Src != ""
}

// Origin identifies the unit in executor diagnostics.
func (u *Unit) Origin() string {
	if u.Remote() {
		return u.Src
	}
	return fmt.Sprintf("inline <script> #%d", u.Index)
}

// Ref is the element reference used in per-unit error logs.
func (u *Unit) Ref() string {
	if u.Remote() {
		return fmt.Sprintf("%s: <script src=%q> #%d", u.Document, u.Src, u.Index)
	}
	return fmt.Sprintf("%s: inline <script> #%d", u.Document, u.Index)
}

// Status atomically retrieves the unit's lifecycle status.
func (u *Unit) Status() Status {
	return Status(u.status.Load())
}

// Advance moves the unit forward to next. Backward or sideways moves, and any
// move out of a terminal status, are rejected.
func (u *Unit) Advance(next Status) error {
	for {
		cur := u.Status()
		if cur.Terminal() || next <= cur || next == Failed {
			return fmt.Errorf("invalid transition %s -> %s for %s", cur, next, u.Ref())
		}
		if u.status.CompareAndSwap(int32(cur), int32(next)) {
			return nil
		}
	}
}

// Fail marks the unit as failed at stage. A unit that already reached a
// terminal status keeps it.
func (u *Unit) Fail(stage Stage, err error) {
	for {
		cur := u.Status()
		if cur.Terminal() {
			return
		}
		if u.status.CompareAndSwap(int32(cur), int32(Failed)) {
			break
		}
	}
	u.mu.Lock()
	u.failedAt = stage
	u.err = err
	u.mu.Unlock()
}

// SetRaw records the loaded DSL text and advances to Loaded.
func (u *Unit) SetRaw(raw string) error {
	u.mu.Lock()
	u.raw = raw
	u.mu.Unlock()
	return u.Advance(Loaded)
}

// SetHost records the transpiled host text and advances to Transpiled.
func (u *Unit) SetHost(host string) error {
	u.mu.Lock()
	u.host = host
	u.mu.Unlock()
	return u.Advance(Transpiled)
}

// Raw returns the loaded DSL text.
func (u *Unit) Raw() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.raw
}

// Host returns the transpiled host text.
func (u *Unit) Host() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.host
}

// Err returns the failure cause and the stage it happened in.
func (u *Unit) Err() (Stage, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.failedAt, u.err
}
