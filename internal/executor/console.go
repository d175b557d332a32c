package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Entry is one console call made by a script.
type Entry struct {
	Level   string `json:"level"`
	Origin  string `json:"origin"`
	Message string `json:"message"`
}

// Sink receives console output.
type Sink interface {
	Emit(ctx context.Context, e Entry)
}

// consoleLevels are the console methods installed into the runtime.
var consoleLevels = []string{"log", "info", "debug", "warn", "error"}

// WriterSink writes console output line by line. log, info and debug lines
// are written as-is; warn and error lines carry a level prefix.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit implements Sink.
func (s *WriterSink) Emit(_ context.Context, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch e.Level {
	case "warn", "error":
		fmt.Fprintf(s.w, "[%s] %s\n", e.Level, e.Message)
	default:
		fmt.Fprintln(s.w, e.Message)
	}
}

func (e *JS) registerConsole() error {
	console := e.vm.NewObject()
	for _, level := range consoleLevels {
		level := level
		err := console.Set(level, func(call goja.FunctionCall) goja.Value {
			e.emit(level, formatArgs(call.Arguments))
			return goja.Undefined()
		})
		if err != nil {
			return fmt.Errorf("installing console.%s: %w", level, err)
		}
	}
	return e.vm.Set("console", console)
}

func (e *JS) emit(level, message string) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	entry := Entry{Level: level, Origin: e.origin, Message: message}
	for _, s := range e.sinks {
		s.Emit(ctx, entry)
	}
}

// formatArgs renders console arguments the way a browser console prints
// them on one line: strings raw, objects and arrays as JSON.
func formatArgs(args []goja.Value) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, formatValue(arg))
	}
	return strings.Join(parts, " ")
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if _, isFn := goja.AssertFunction(v); isFn {
		return v.String()
	}
	if _, isObj := v.(*goja.Object); isObj {
		if b, err := json.Marshal(v.Export()); err == nil {
			return string(b)
		}
	}
	return v.String()
}
