// Package jsrt abstracts the JavaScript host that the Firebase bindings talk
// to. Two hosts implement it: gojart (goja driven by an event loop, used by
// native binaries and tests) and browser (syscall/js, used by js/wasm
// builds).
//
// Values are only valid on the host's JS thread. Every access to a Value
// must happen inside Realm.Run, or inside a callback the host invoked.
package jsrt

import (
	"context"
	"time"
)

// Type is the JavaScript type of a value, as reported by typeof with null
// split out.
type Type int

const (
	TypeUndefined Type = iota
	TypeNull
	TypeBoolean
	TypeNumber
	TypeBigInt
	TypeString
	TypeSymbol
	TypeObject
	TypeFunction
)

var typeNames = [...]string{
	TypeUndefined: "undefined",
	TypeNull:      "null",
	TypeBoolean:   "boolean",
	TypeNumber:    "number",
	TypeBigInt:    "bigint",
	TypeString:    "string",
	TypeSymbol:    "symbol",
	TypeObject:    "object",
	TypeFunction:  "function",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// IsObject reports whether values of this type carry properties.
func (t Type) IsObject() bool {
	return t == TypeObject || t == TypeFunction
}

// Value is a reference to a JavaScript value owned by a Realm.
type Value interface {
	Type() Type

	// IsArray reports Array.isArray(v).
	IsArray() bool
	// IsBytes reports v instanceof Uint8Array.
	IsBytes() bool
	// IsDate reports v instanceof Date.
	IsDate() bool

	Truthy() bool
	// String returns the string value, or String(v) for other types.
	String() string
	Float() float64
	Bool() bool
	// Bytes copies the contents of a Uint8Array.
	Bytes() []byte
	// Time converts a Date.
	Time() time.Time

	Get(key string) Value
	Set(key string, v Value)
	Delete(key string)
	// Has reports `key in v`.
	Has(key string) bool
	// Keys lists own enumerable string keys.
	Keys() []string
	Len() int
	Index(i int) Value

	// Call invokes v[method] with v as this.
	Call(method string, args ...Value) (Value, error)
	// Invoke calls v as a function with undefined as this.
	Invoke(args ...Value) (Value, error)
	// New calls v as a constructor.
	New(args ...Value) (Value, error)

	// Equal reports strict equality (===).
	Equal(other Value) bool
}

// Func is a Go function exposed to JavaScript.
type Func interface {
	Value
	// Release frees host resources held for the callback. It may be called
	// while the callback is running.
	Release()
}

// Realm is a JavaScript host: one global scope and one thread.
type Realm interface {
	// Run executes fn on the JS thread and waits for it. If ctx ends first
	// Run returns ctx.Err(); fn may still run later.
	Run(ctx context.Context, fn func() error) error
	// Done is closed when the realm shuts down. Pending callbacks never
	// fire after that. A realm that never shuts down returns nil.
	Done() <-chan struct{}

	Global() Value
	Undefined() Value
	Null() Value

	// ValueOf converts nil, bool, string, integer and float kinds, []byte
	// (to Uint8Array), time.Time (to Date) and Value. Other types panic.
	ValueOf(x any) Value
	NewObject() Value
	NewArray(items ...Value) Value
	FuncOf(fn func(this Value, args []Value) Value) Func

	// Require resolves an SDK module specifier such as "firebase/auth".
	Require(module string) (Value, error)
}

// IsThenable reports whether v has a callable then property.
func IsThenable(v Value) bool {
	if v == nil || !v.Type().IsObject() {
		return false
	}
	return v.Get("then").Type() == TypeFunction
}

// IsNullish reports whether v is nil, undefined or null.
func IsNullish(v Value) bool {
	if v == nil {
		return true
	}
	t := v.Type()
	return t == TypeUndefined || t == TypeNull
}

// Arg returns args[i] or undefined when the call passed fewer arguments.
func Arg(r Realm, args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return r.Undefined()
}
