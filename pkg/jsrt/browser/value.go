//go:build js && wasm

package browser

import (
	"fmt"
	"syscall/js"
	"time"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

type value struct {
	r *Realm
	v js.Value
}

func wrap(r *Realm, v js.Value) jsrt.Value {
	return &value{r: r, v: v}
}

func unwrap(v jsrt.Value) any {
	switch t := v.(type) {
	case nil:
		return js.Undefined()
	case *value:
		return t.v
	case *function:
		return t.fn
	default:
		panic(fmt.Sprintf("browser: foreign value %T", v))
	}
}

func unwrapAll(vs []jsrt.Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = unwrap(v)
	}
	return out
}

// call runs fn and turns a thrown js.Error into *jsrt.Exception.
func (x *value) call(fn func() js.Value) (res jsrt.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			if je, ok := p.(js.Error); ok {
				err = jsrt.NewException(wrap(x.r, je.Value))
				return
			}
			err = &jsrt.Exception{Name: "Error", Message: fmt.Sprint(p)}
		}
	}()
	return wrap(x.r, fn()), nil
}

// jsType returns v.Type(), which panics for values syscall/js has no
// constant for (bigint).
func jsType(v js.Value) (t js.Type, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return v.Type(), true
}

func (x *value) Type() jsrt.Type {
	t, ok := jsType(x.v)
	if !ok {
		if x.r.typeOf.Invoke(x.v).String() == "bigint" {
			return jsrt.TypeBigInt
		}
		return jsrt.TypeUndefined
	}
	switch t {
	case js.TypeUndefined:
		return jsrt.TypeUndefined
	case js.TypeNull:
		return jsrt.TypeNull
	case js.TypeBoolean:
		return jsrt.TypeBoolean
	case js.TypeNumber:
		return jsrt.TypeNumber
	case js.TypeString:
		return jsrt.TypeString
	case js.TypeSymbol:
		return jsrt.TypeSymbol
	case js.TypeObject:
		return jsrt.TypeObject
	case js.TypeFunction:
		return jsrt.TypeFunction
	}
	return jsrt.TypeUndefined
}

func (x *value) isObject() bool {
	t, ok := jsType(x.v)
	return ok && (t == js.TypeObject || t == js.TypeFunction)
}

func (x *value) IsArray() bool { return x.r.array.Call("isArray", x.v).Bool() }
func (x *value) IsBytes() bool { return x.isObject() && x.v.InstanceOf(x.r.uint8Array) }
func (x *value) IsDate() bool  { return x.isObject() && x.v.InstanceOf(x.r.date) }

func (x *value) Truthy() bool { return x.v.Truthy() }

func (x *value) String() string {
	if t, ok := jsType(x.v); ok && t == js.TypeString {
		return x.v.String()
	}
	return js.Global().Get("String").Invoke(x.v).String()
}

func (x *value) Float() float64 {
	if t, ok := jsType(x.v); !ok || t != js.TypeNumber {
		return js.Global().Get("Number").Invoke(x.v).Float()
	}
	return x.v.Float()
}

func (x *value) Bool() bool { return x.v.Truthy() }

func (x *value) Bytes() []byte {
	if !x.IsBytes() {
		return nil
	}
	out := make([]byte, x.v.Length())
	js.CopyBytesToGo(out, x.v)
	return out
}

func (x *value) Time() time.Time {
	if !x.IsDate() {
		return time.Time{}
	}
	return time.UnixMilli(int64(x.v.Call("getTime").Float()))
}

func (x *value) Get(key string) jsrt.Value {
	if !x.isObject() {
		return wrap(x.r, js.Undefined())
	}
	return wrap(x.r, x.v.Get(key))
}

func (x *value) Set(key string, v jsrt.Value) {
	if !x.isObject() {
		panic(&jsrt.Exception{Name: "TypeError", Message: fmt.Sprintf("cannot set property '%s' on %s", key, x.Type())})
	}
	x.v.Set(key, unwrap(v))
}

func (x *value) Delete(key string) {
	if x.isObject() {
		x.v.Delete(key)
	}
}

func (x *value) Has(key string) bool {
	if !x.isObject() {
		return false
	}
	return x.r.reflectHas.Invoke(x.v, key).Bool()
}

func (x *value) Keys() []string {
	if !x.isObject() {
		return nil
	}
	keys := x.r.object.Call("keys", x.v)
	out := make([]string, keys.Length())
	for i := range out {
		out[i] = keys.Index(i).String()
	}
	return out
}

func (x *value) Len() int {
	if x.Type() == jsrt.TypeString {
		return len(x.v.String())
	}
	if !x.isObject() {
		return 0
	}
	l := x.v.Get("length")
	if l.Type() != js.TypeNumber {
		return 0
	}
	return l.Int()
}

func (x *value) Index(i int) jsrt.Value {
	if !x.isObject() {
		return wrap(x.r, js.Undefined())
	}
	return wrap(x.r, x.v.Index(i))
}

func (x *value) Call(method string, args ...jsrt.Value) (jsrt.Value, error) {
	if !x.isObject() {
		return nil, &jsrt.Exception{Name: "TypeError", Message: fmt.Sprintf("cannot read property '%s' of %s", method, x.Type())}
	}
	return x.call(func() js.Value { return x.v.Call(method, unwrapAll(args)...) })
}

func (x *value) Invoke(args ...jsrt.Value) (jsrt.Value, error) {
	return x.call(func() js.Value { return x.v.Invoke(unwrapAll(args)...) })
}

func (x *value) New(args ...jsrt.Value) (jsrt.Value, error) {
	return x.call(func() js.Value { return x.v.New(unwrapAll(args)...) })
}

func (x *value) Equal(other jsrt.Value) bool {
	switch o := other.(type) {
	case *value:
		return x.v.Equal(o.v)
	case *function:
		return x.v.Equal(o.fn.Value)
	}
	return false
}

// JSValue exposes the underlying syscall/js value.
func (x *value) JSValue() js.Value { return x.v }

type function struct {
	*value
	fn       js.Func
	released bool
}

func (f *function) Release() {
	if f.released {
		return
	}
	f.released = true
	f.fn.Release()
}
