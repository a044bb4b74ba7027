// Package gojart hosts the Firebase JS SDK inside goja, driven by a
// goja_nodejs event loop.
package gojart

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Runtime is a jsrt.Realm backed by goja.
// All goja state is owned by the loop goroutine.
type Runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	// Set on the loop during start; read only from the loop afterwards.
	vm       *goja.Runtime
	helpers  helpers
	required map[string]goja.Value

	// Compiled module cache (key: module specifier -> *Module).
	modules sync.Map

	config *Config
	logger *zap.Logger

	// Cancels in-flight fetches on shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
	closed    chan struct{}
}

// Config holds runtime configuration.
type Config struct {
	// SDK bundles to register, keyed by their module specifier.
	Modules []ModuleSource

	// Install a fetch() global backed by net/http.
	EnableFetch bool

	// Client used by fetch. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Per-request timeout for fetch. Zero means none.
	FetchTimeout time.Duration
}

// helpers are small JS functions used for instanceof checks.
type helpers struct {
	isArray goja.Callable
	isBytes goja.Callable
	isDate  goja.Callable
}

const helperSource = `({
	isArray: function (v) { return Array.isArray(v); },
	isBytes: function (v) { return v instanceof Uint8Array; },
	isDate: function (v) { return v instanceof Date; }
})`

// DefaultConfig returns a config with no modules and fetch disabled.
func DefaultConfig() *Config {
	return &Config{}
}

// New creates a runtime, loads the configured modules and starts its loop.
func New(ctx context.Context, logger *zap.Logger, config *Config) (*Runtime, error) {
	if config == nil {
		config = DefaultConfig()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	r := &Runtime{
		registry: require.NewRegistry(),
		required: make(map[string]goja.Value),
		config:   config,
		logger:   logger.With(zap.String("component", "js-runtime")),
		baseCtx:  baseCtx,
		cancel:   cancel,
		closed:   make(chan struct{}),
	}

	r.registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(newConsolePrinter(r.logger)))

	for _, src := range config.Modules {
		if _, err := r.LoadModule(src); err != nil {
			cancel()
			return nil, err
		}
	}

	r.loop = eventloop.NewEventLoop(
		eventloop.WithRegistry(r.registry),
		eventloop.EnableConsole(true),
	)
	r.loop.Start()

	started := make(chan error, 1)
	r.loop.RunOnLoop(func(vm *goja.Runtime) {
		started <- r.setup(vm)
	})

	select {
	case err := <-started:
		if err != nil {
			r.Close(context.Background())
			return nil, err
		}
	case <-ctx.Done():
		r.Close(context.Background())
		return nil, ctx.Err()
	}

	r.logger.Info("JS runtime initialized",
		zap.Int("modules", len(config.Modules)),
		zap.Bool("fetch_enabled", config.EnableFetch),
	)

	return r, nil
}

func (r *Runtime) setup(vm *goja.Runtime) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()

	r.vm = vm

	hv, err := vm.RunString(helperSource)
	if err != nil {
		return fmt.Errorf("failed to compile runtime helpers: %w", err)
	}
	obj := hv.ToObject(vm)
	for name, dst := range map[string]*goja.Callable{
		"isArray": &r.helpers.isArray,
		"isBytes": &r.helpers.isBytes,
		"isDate":  &r.helpers.isDate,
	} {
		fn, ok := goja.AssertFunction(obj.Get(name))
		if !ok {
			return fmt.Errorf("runtime helper %s is not a function", name)
		}
		*dst = fn
	}

	return r.installShims(vm)
}

func (r *Runtime) helperTest(fn goja.Callable, v goja.Value) bool {
	if fn == nil {
		return false
	}
	res, err := fn(goja.Undefined(), v)
	if err != nil {
		return false
	}
	return res.ToBoolean()
}

// Run executes fn on the loop and waits for its result.
func (r *Runtime) Run(ctx context.Context, fn func() error) error {
	if r.IsClosed() {
		return ErrClosed
	}

	done := make(chan error, 1)
	r.loop.RunOnLoop(func(*goja.Runtime) {
		done <- r.protect(fn)
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closed:
		return ErrClosed
	}
}

// protect runs fn and converts panics raised by goja into errors.
func (r *Runtime) protect(fn func() error) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		switch t := p.(type) {
		case *goja.Exception:
			err = r.exception(t)
		case *goja.Object:
			err = jsrt.NewException(r.wrap(t))
		case *jsrt.Exception:
			err = t
		case error:
			err = t
		default:
			err = &PanicError{Value: p}
		}
		r.logger.Debug("Recovered panic on JS loop", zap.Error(err))
	}()
	return fn()
}

func (r *Runtime) Global() jsrt.Value    { return r.wrap(r.vm.GlobalObject()) }
func (r *Runtime) Undefined() jsrt.Value { return r.wrap(goja.Undefined()) }
func (r *Runtime) Null() jsrt.Value      { return r.wrap(goja.Null()) }
func (r *Runtime) NewObject() jsrt.Value { return r.wrap(r.vm.NewObject()) }

func (r *Runtime) NewArray(items ...jsrt.Value) jsrt.Value {
	vals := make([]any, len(items))
	for i, it := range items {
		vals[i] = r.unwrap(it)
	}
	return r.wrap(r.vm.NewArray(vals...))
}

func (r *Runtime) ValueOf(x any) jsrt.Value {
	switch t := x.(type) {
	case nil:
		return r.Null()
	case jsrt.Value:
		return t
	case []byte:
		return r.wrap(r.newUint8Array(t))
	case time.Time:
		d, err := r.vm.New(r.vm.Get("Date"), r.vm.ToValue(float64(t.UnixMilli())))
		if err != nil {
			panic(r.exception(err))
		}
		return r.wrap(d)
	case string, bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return r.wrap(r.vm.ToValue(t))
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.String:
		return r.wrap(r.vm.ToValue(rv.String()))
	case reflect.Bool:
		return r.wrap(r.vm.ToValue(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.wrap(r.vm.ToValue(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return r.wrap(r.vm.ToValue(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return r.wrap(r.vm.ToValue(rv.Float()))
	}
	panic(fmt.Sprintf("gojart: ValueOf: unsupported type %T", x))
}

func (r *Runtime) FuncOf(fn func(this jsrt.Value, args []jsrt.Value) jsrt.Value) jsrt.Func {
	return r.newFunction(fn)
}

// Require loads a registered SDK module through the CommonJS registry.
// It must be called on the loop.
func (r *Runtime) Require(module string) (jsrt.Value, error) {
	if v, ok := r.required[module]; ok {
		return r.wrap(v), nil
	}
	if _, ok := r.GetModule(module); !ok {
		return nil, &ModuleNotFoundError{Module: module}
	}

	req, ok := goja.AssertFunction(r.vm.Get("require"))
	if !ok {
		return nil, fmt.Errorf("require is not enabled on this runtime")
	}
	exports, err := req(goja.Undefined(), r.vm.ToValue(module))
	if err != nil {
		return nil, r.exception(err)
	}

	r.required[module] = exports
	r.logger.Debug("JS module required", zap.String("module", module))
	return r.wrap(exports), nil
}

// Eval runs a script on the loop and discards its result. Used to install
// test fixtures and host-provided globals.
func (r *Runtime) Eval(ctx context.Context, name, src string) error {
	return r.Run(ctx, func() error {
		if _, err := r.vm.RunScript(name, src); err != nil {
			return r.exception(err)
		}
		return nil
	})
}

// Close stops the loop. Safe to call multiple times.
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down JS runtime")

		close(r.closed)
		r.cancel()

		if r.loop == nil {
			return
		}

		stopped := make(chan int, 1)
		go func() {
			stopped <- r.loop.Stop()
		}()

		select {
		case pending := <-stopped:
			if pending > 0 {
				r.logger.Warn("JS runtime stopped with pending jobs", zap.Int("pending", pending))
			}
		case <-ctx.Done():
			err = ctx.Err()
		}

		r.logger.Info("JS runtime shutdown complete")
	})
	return err
}

// Done is closed by Close.
func (r *Runtime) Done() <-chan struct{} { return r.closed }

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}

var _ jsrt.Realm = (*Runtime)(nil)
