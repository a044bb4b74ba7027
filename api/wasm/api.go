// Package wasm exports Go functions to JavaScript as promise-returning
// functions under one global namespace.
package wasm

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DefaultNamespace is the global the API is exported under.
const DefaultNamespace = "goFirebase"

// Handler implements one exported function. args are the JS arguments
// converted with the generic tree rules: numbers are float64, Uint8Array is
// []byte and plain objects are map[string]any.
type Handler func(ctx context.Context, args []any) (any, error)

// API is a registry of exported functions.
type API struct {
	realm  jsrt.Realm
	ctx    context.Context
	logger *zap.Logger

	mu       sync.Mutex
	handlers map[string]Handler
	funcs    []jsrt.Func
}

// NewAPI creates an API bound to realm. ctx bounds every call.
func NewAPI(ctx context.Context, realm jsrt.Realm, logger *zap.Logger) *API {
	return &API{
		realm:    realm,
		ctx:      ctx,
		logger:   logger.With(zap.String("component", "wasm-api")),
		handlers: make(map[string]Handler),
	}
}

// Register adds fn under name, replacing any previous handler.
func (api *API) Register(name string, fn Handler) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.handlers[name] = fn
}

// Names lists registered functions in sorted order.
func (api *API) Names() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	names := make([]string, 0, len(api.handlers))
	for name := range api.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportTo sets globalThis[namespace] to an object holding every
// registered function.
func (api *API) ExportTo(ctx context.Context, namespace string) error {
	api.mu.Lock()
	defer api.mu.Unlock()

	return api.realm.Run(ctx, func() error {
		ns := api.realm.NewObject()
		for name, h := range api.handlers {
			fn := api.realm.FuncOf(api.wrap(name, h))
			api.funcs = append(api.funcs, fn)
			ns.Set(name, fn)
		}
		api.realm.Global().Set(namespace, ns)
		api.logger.Info("API exported",
			zap.String("namespace", namespace),
			zap.Int("functions", len(api.handlers)),
		)
		return nil
	})
}

// Release frees the exported functions.
func (api *API) Release() {
	api.mu.Lock()
	defer api.mu.Unlock()
	for _, fn := range api.funcs {
		fn.Release()
	}
	api.funcs = nil
}

// wrap returns the JS side of a handler. It copies the arguments on the JS
// thread, returns a promise and runs the handler on its own goroutine,
// since handlers block on SDK promises.
func (api *API) wrap(name string, h Handler) func(jsrt.Value, []jsrt.Value) jsrt.Value {
	return func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
		var resolve jsrt.Value
		executor := api.realm.FuncOf(func(_ jsrt.Value, a []jsrt.Value) jsrt.Value {
			resolve = jsrt.Arg(api.realm, a, 0)
			return api.realm.Undefined()
		})
		p, err := api.realm.Global().Get("Promise").New(executor)
		executor.Release()
		if err != nil {
			api.logger.Error("Failed to create promise", zap.String("func", name), zap.Error(err))
			return api.realm.Undefined()
		}

		in := make([]any, len(args))
		for i, a := range args {
			tree, err := serde.ToTree(a)
			if err != nil {
				api.settle(name, resolve, Failure(err))
				return p
			}
			in[i] = tree
		}

		go func() {
			resp := Guard(func() (any, error) { return h(api.ctx, in) })
			if resp.Error != nil {
				api.logger.Debug("Call failed",
					zap.String("func", name),
					zap.String("code", resp.Error.Code),
					zap.String("message", resp.Error.Message),
				)
			}
			err := api.realm.Run(api.ctx, func() error {
				api.settle(name, resolve, resp)
				return nil
			})
			if err != nil {
				api.logger.Warn("Call result dropped", zap.String("func", name), zap.Error(err))
			}
		}()
		return p
	}
}

// settle resolves the promise with resp. It runs on the JS thread.
func (api *API) settle(name string, resolve jsrt.Value, resp Response) {
	v, err := serde.Marshal(api.realm, resp)
	if err != nil {
		v, err = serde.Marshal(api.realm, Failure(err))
	}
	if err == nil {
		_, err = resolve.Invoke(v)
	}
	if err != nil {
		api.logger.Error("Failed to settle call", zap.String("func", name), zap.Error(err))
	}
}
