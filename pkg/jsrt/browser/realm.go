//go:build js && wasm

package browser

import (
	"context"
	"fmt"
	"reflect"
	"syscall/js"
	"time"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DefaultNamespace is the global object SDK modules are read from, keyed by
// specifier: globalThis.__firebaseModules["firebase/auth"].
const DefaultNamespace = "__firebaseModules"

// Realm is a jsrt.Realm over syscall/js.
type Realm struct {
	namespace string
	logger    *zap.Logger

	uint8Array js.Value
	date       js.Value
	array      js.Value
	object     js.Value
	reflectHas js.Value
	typeOf     js.Value
}

// Option configures a Realm.
type Option func(*Realm)

// WithNamespace changes the global holding the SDK modules.
func WithNamespace(name string) Option {
	return func(r *Realm) { r.namespace = name }
}

// New binds a Realm to the page's global scope.
func New(logger *zap.Logger, opts ...Option) *Realm {
	g := js.Global()
	r := &Realm{
		namespace:  DefaultNamespace,
		logger:     logger.With(zap.String("component", "js-browser")),
		uint8Array: g.Get("Uint8Array"),
		date:       g.Get("Date"),
		array:      g.Get("Array"),
		object:     g.Get("Object"),
		reflectHas: g.Get("Reflect").Get("has"),
		typeOf:     g.Get("Function").New("v", "return typeof v;"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run calls fn inline. The wasm scheduler only switches goroutines at
// blocking points, so fn never interleaves with another Run.
func (r *Realm) Run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.protect(fn)
}

// Done returns nil: the page's realm lives as long as the program.
func (r *Realm) Done() <-chan struct{} { return nil }

func (r *Realm) protect(fn func() error) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		switch t := p.(type) {
		case js.Error:
			err = jsrt.NewException(wrap(r, t.Value))
		case *jsrt.Exception:
			err = t
		case error:
			err = t
		default:
			err = fmt.Errorf("panic in JS call: %v", p)
		}
	}()
	return fn()
}

func (r *Realm) Global() jsrt.Value    { return wrap(r, js.Global()) }
func (r *Realm) Undefined() jsrt.Value { return wrap(r, js.Undefined()) }
func (r *Realm) Null() jsrt.Value      { return wrap(r, js.Null()) }
func (r *Realm) NewObject() jsrt.Value { return wrap(r, r.object.New()) }

func (r *Realm) NewArray(items ...jsrt.Value) jsrt.Value {
	return wrap(r, r.array.Call("of", unwrapAll(items)...))
}

func (r *Realm) ValueOf(x any) jsrt.Value {
	switch t := x.(type) {
	case nil:
		return r.Null()
	case jsrt.Value:
		return t
	case []byte:
		arr := r.uint8Array.New(len(t))
		js.CopyBytesToJS(arr, t)
		return wrap(r, arr)
	case time.Time:
		return wrap(r, r.date.New(float64(t.UnixMilli())))
	case string, bool, float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return wrap(r, js.ValueOf(t))
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.String:
		return wrap(r, js.ValueOf(rv.String()))
	case reflect.Bool:
		return wrap(r, js.ValueOf(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wrap(r, js.ValueOf(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return wrap(r, js.ValueOf(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return wrap(r, js.ValueOf(rv.Float()))
	}
	panic(fmt.Sprintf("browser: ValueOf: unsupported type %T", x))
}

func (r *Realm) FuncOf(fn func(this jsrt.Value, args []jsrt.Value) jsrt.Value) jsrt.Func {
	f := &function{}
	f.fn = js.FuncOf(func(this js.Value, args []js.Value) (ret any) {
		if f.released {
			return nil
		}
		// A panic escaping a js.Func kills the wasm instance.
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("Go callback panicked", zap.String("panic", fmt.Sprint(p)))
				ret = nil
			}
		}()
		wrapped := make([]jsrt.Value, len(args))
		for i, a := range args {
			wrapped[i] = wrap(r, a)
		}
		return unwrap(fn(wrap(r, this), wrapped))
	})
	f.value = &value{r: r, v: f.fn.Value}
	return f
}

// Require reads a module object from the namespace global.
func (r *Realm) Require(module string) (jsrt.Value, error) {
	ns := js.Global().Get(r.namespace)
	if ns.Type() != js.TypeObject {
		return nil, fmt.Errorf("%s: global %s is not set: %w", module, r.namespace, jsrt.ErrNoModule)
	}
	mod := ns.Get(module)
	if mod.IsUndefined() || mod.IsNull() {
		return nil, fmt.Errorf("%s: %w", module, jsrt.ErrNoModule)
	}
	r.logger.Debug("JS module resolved", zap.String("module", module))
	return wrap(r, mod), nil
}

var _ jsrt.Realm = (*Realm)(nil)
