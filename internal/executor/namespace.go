package executor

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/vk/ironrun/internal/ctxlog"
)

func (e *JS) registerNamespace() error {
	obj := e.vm.NewObject()

	fns := map[string]func(goja.FunctionCall) goja.Value{
		"transpile": func(call goja.FunctionCall) goja.Value {
			return e.vm.ToValue(e.ns.Transpile(export(call.Argument(0))))
		},
		"run": func(call goja.FunctionCall) goja.Value {
			origin := "iron.run"
			if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
				origin = arg.String()
			}
			e.runNested(e.ns.Transpile(export(call.Argument(0))), origin)
			return goja.Undefined()
		},
		"loadAndRunRemote": func(call goja.FunctionCall) goja.Value {
			ctx := e.ctx
			if ctx == nil {
				ctx = context.Background()
			}
			e.ns.LoadAndRunRemote(ctx, call.Argument(0).String())
			return goja.Undefined()
		},
	}
	for name, fn := range fns {
		if err := obj.Set(name, fn); err != nil {
			return fmt.Errorf("installing %s.%s: %w", e.nsName, name, err)
		}
	}
	return e.vm.Set(e.nsName, obj)
}

// runNested runs code from inside a running unit. Errors are logged and
// swallowed so the calling script carries on.
func (e *JS) runNested(code, origin string) {
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	prevOrigin := e.origin
	e.origin = origin
	defer func() { e.origin = prevOrigin }()

	if err := e.exec(code, origin); err != nil {
		ctxlog.FromContext(ctx).Error("Error executing transpiled script.", "origin", origin, "error", err)
	}
}

func export(v goja.Value) any {
	if v == nil {
		return nil
	}
	return v.Export()
}
