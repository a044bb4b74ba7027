package gojart

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// value is a goja value bound to its runtime.
type value struct {
	r *Runtime
	v goja.Value
}

var bigIntType = reflect.TypeOf((*big.Int)(nil))

func (r *Runtime) wrap(v goja.Value) jsrt.Value {
	if v == nil {
		v = goja.Undefined()
	}
	return &value{r: r, v: v}
}

func (r *Runtime) wrapAll(vs []goja.Value) []jsrt.Value {
	out := make([]jsrt.Value, len(vs))
	for i, v := range vs {
		out[i] = r.wrap(v)
	}
	return out
}

// unwrap returns the goja value behind v. Values from another realm panic.
func (r *Runtime) unwrap(v jsrt.Value) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Undefined()
	case *value:
		if t.r != r {
			panic("gojart: value belongs to another runtime")
		}
		return t.v
	case *function:
		return r.unwrap(t.value)
	default:
		panic(fmt.Sprintf("gojart: foreign value %T", v))
	}
}

func (r *Runtime) unwrapAll(vs []jsrt.Value) []goja.Value {
	out := make([]goja.Value, len(vs))
	for i, v := range vs {
		out[i] = r.unwrap(v)
	}
	return out
}

// exception converts an error returned by goja into *jsrt.Exception.
func (r *Runtime) exception(err error) error {
	switch e := err.(type) {
	case *goja.Exception:
		return jsrt.NewException(r.wrap(e.Value()))
	case *goja.InterruptedError:
		return &jsrt.Exception{Name: "InterruptedError", Message: e.Error()}
	default:
		return &jsrt.Exception{Name: "Error", Message: err.Error()}
	}
}

func typeError(format string, args ...any) *jsrt.Exception {
	return &jsrt.Exception{Name: "TypeError", Message: fmt.Sprintf(format, args...)}
}

func (x *value) object() (*goja.Object, bool) {
	obj, ok := x.v.(*goja.Object)
	return obj, ok
}

func (x *value) Type() jsrt.Type {
	switch {
	case goja.IsUndefined(x.v):
		return jsrt.TypeUndefined
	case goja.IsNull(x.v):
		return jsrt.TypeNull
	}
	switch x.v.(type) {
	case *goja.Object:
		if _, ok := goja.AssertFunction(x.v); ok {
			return jsrt.TypeFunction
		}
		return jsrt.TypeObject
	case *goja.Symbol:
		return jsrt.TypeSymbol
	}
	t := x.v.ExportType()
	if t == nil {
		return jsrt.TypeUndefined
	}
	if t == bigIntType {
		return jsrt.TypeBigInt
	}
	switch t.Kind() {
	case reflect.String:
		return jsrt.TypeString
	case reflect.Bool:
		return jsrt.TypeBoolean
	case reflect.Int, reflect.Int64, reflect.Float64:
		return jsrt.TypeNumber
	}
	return jsrt.TypeObject
}

func (x *value) IsArray() bool { return x.r.helperTest(x.r.helpers.isArray, x.v) }
func (x *value) IsBytes() bool { return x.r.helperTest(x.r.helpers.isBytes, x.v) }
func (x *value) IsDate() bool  { return x.r.helperTest(x.r.helpers.isDate, x.v) }

func (x *value) Truthy() bool   { return x.v.ToBoolean() }
func (x *value) String() string { return x.v.String() }
func (x *value) Float() float64 { return x.v.ToFloat() }
func (x *value) Bool() bool     { return x.v.ToBoolean() }

func (x *value) Bytes() []byte {
	obj, ok := x.object()
	if !ok || !x.IsBytes() {
		return nil
	}
	return copyTypedArray(obj)
}

func (x *value) Time() time.Time {
	obj, ok := x.object()
	if !ok {
		return time.Time{}
	}
	if t, ok := obj.Export().(time.Time); ok {
		return t
	}
	ms, err := x.Call("getTime")
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms.Float()))
}

func (x *value) Get(key string) jsrt.Value {
	obj, ok := x.object()
	if !ok {
		return x.r.wrap(nil)
	}
	return x.r.wrap(obj.Get(key))
}

func (x *value) Set(key string, v jsrt.Value) {
	obj, ok := x.object()
	if !ok {
		panic(typeError("cannot set property '%s' on %s", key, x.Type()))
	}
	if err := obj.Set(key, x.r.unwrap(v)); err != nil {
		panic(x.r.exception(err))
	}
}

func (x *value) Delete(key string) {
	obj, ok := x.object()
	if !ok {
		return
	}
	if err := obj.Delete(key); err != nil {
		panic(x.r.exception(err))
	}
}

func (x *value) Has(key string) bool {
	obj, ok := x.object()
	if !ok {
		return false
	}
	return obj.Get(key) != nil
}

func (x *value) Keys() []string {
	obj, ok := x.object()
	if !ok {
		return nil
	}
	return obj.Keys()
}

func (x *value) Len() int {
	obj, ok := x.object()
	if !ok {
		if x.Type() == jsrt.TypeString {
			return len(x.v.String())
		}
		return 0
	}
	l := obj.Get("length")
	if l == nil {
		return 0
	}
	return int(l.ToInteger())
}

func (x *value) Index(i int) jsrt.Value {
	obj, ok := x.object()
	if !ok {
		return x.r.wrap(nil)
	}
	return x.r.wrap(obj.Get(strconv.Itoa(i)))
}

func (x *value) Call(method string, args ...jsrt.Value) (jsrt.Value, error) {
	obj, ok := x.object()
	if !ok {
		return nil, typeError("cannot read property '%s' of %s", method, x.Type())
	}
	fn, ok := goja.AssertFunction(obj.Get(method))
	if !ok {
		return nil, typeError("%s is not a function", method)
	}
	res, err := fn(obj, x.r.unwrapAll(args)...)
	if err != nil {
		return nil, x.r.exception(err)
	}
	return x.r.wrap(res), nil
}

func (x *value) Invoke(args ...jsrt.Value) (jsrt.Value, error) {
	fn, ok := goja.AssertFunction(x.v)
	if !ok {
		return nil, typeError("value of type %s is not a function", x.Type())
	}
	res, err := fn(goja.Undefined(), x.r.unwrapAll(args)...)
	if err != nil {
		return nil, x.r.exception(err)
	}
	return x.r.wrap(res), nil
}

func (x *value) New(args ...jsrt.Value) (jsrt.Value, error) {
	obj, err := x.r.vm.New(x.v, x.r.unwrapAll(args)...)
	if err != nil {
		return nil, x.r.exception(err)
	}
	return x.r.wrap(obj), nil
}

func (x *value) Equal(other jsrt.Value) bool {
	o, ok := other.(*value)
	if f, isFunc := other.(*function); isFunc {
		o, ok = f.value, true
	}
	if !ok || o.r != x.r {
		return false
	}
	return x.v.StrictEquals(o.v)
}

// function is a Go callback exposed to goja.
type function struct {
	*value
	released atomic.Bool
}

func (f *function) Release() {
	f.released.Store(true)
}

func (r *Runtime) newFunction(fn func(this jsrt.Value, args []jsrt.Value) jsrt.Value) *function {
	f := &function{}
	native := func(call goja.FunctionCall) goja.Value {
		if f.released.Load() {
			return goja.Undefined()
		}
		defer r.rethrow()
		return r.unwrap(fn(r.wrap(call.This), r.wrapAll(call.Arguments)))
	}
	f.value = &value{r: r, v: r.vm.ToValue(native)}
	return f
}

// rethrow turns a Go panic inside a callback into a JS exception so the
// loop survives it.
func (r *Runtime) rethrow() {
	p := recover()
	if p == nil {
		return
	}
	switch t := p.(type) {
	case *goja.Exception, *goja.Object:
		panic(t)
	case *jsrt.Exception:
		if t.Value != nil {
			panic(r.unwrap(t.Value))
		}
		panic(r.vm.NewGoError(t))
	case error:
		panic(r.vm.NewGoError(t))
	default:
		panic(r.vm.NewGoError(&PanicError{Value: p}))
	}
}
