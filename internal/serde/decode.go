package serde

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Unmarshaler is implemented by types that decode themselves from a JS
// value. UnmarshalJS runs on the JS thread.
type Unmarshaler interface {
	UnmarshalJS(v jsrt.Value) error
}

var (
	unmarshalerType     = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// ErrDepth is wrapped by errors raised when nesting exceeds MaxDepth.
var ErrDepth = errors.New("max depth exceeded")

// Unmarshal decodes v into out, which must be a non-nil pointer. Missing
// or null fields leave zero values unless tagged required. It must run on
// the JS thread.
func Unmarshal(v jsrt.Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &fberrors.DeserializationError{Err: fmt.Errorf("cannot unmarshal into %T", out)}
	}
	return decode("", v, rv.Elem(), 0)
}

func decode(path string, v jsrt.Value, rv reflect.Value, depth int) error {
	if depth > MaxDepth {
		return &fberrors.DeserializationError{Path: path, Err: ErrDepth}
	}

	if rv.CanAddr() && rv.Addr().Type().Implements(unmarshalerType) {
		if err := rv.Addr().Interface().(Unmarshaler).UnmarshalJS(v); err != nil {
			var de *fberrors.DeserializationError
			if errors.As(err, &de) {
				if de.Path == "" {
					de.Path = path
				} else if path != "" {
					de.Path = path + "." + de.Path
				}
				return de
			}
			return &fberrors.DeserializationError{Path: path, Err: err}
		}
		return nil
	}

	if rv.Type() == valueType {
		rv.Set(reflect.ValueOf(v))
		return nil
	}

	if jsrt.IsNullish(v) {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}

	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return decode(path, v, rv.Elem(), depth+1)
	}

	switch {
	case rv.Type() == timeType:
		t, ok := toTime(v)
		if !ok {
			return mismatch(path, "Date", v)
		}
		rv.Set(reflect.ValueOf(t))
		return nil
	case rv.Type() == bytesType:
		if !v.IsBytes() {
			return mismatch(path, "Uint8Array", v)
		}
		rv.SetBytes(v.Bytes())
		return nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		if v.Type() != jsrt.TypeBoolean {
			return mismatch(path, "boolean", v)
		}
		rv.SetBool(v.Bool())
	case reflect.String:
		if v.Type() != jsrt.TypeString {
			return mismatch(path, "string", v)
		}
		rv.SetString(v.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := integer(path, v)
		if err != nil {
			return err
		}
		if f < math.MinInt64 || f >= math.MaxInt64 || rv.OverflowInt(int64(f)) {
			return &fberrors.DeserializationError{Path: path, Expected: rv.Type().String(), Got: strconv.FormatFloat(f, 'g', -1, 64), Err: fmt.Errorf("%v overflows %s", f, rv.Type())}
		}
		rv.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, err := integer(path, v)
		if err != nil {
			return err
		}
		if f < 0 || f >= math.MaxUint64 || rv.OverflowUint(uint64(f)) {
			return &fberrors.DeserializationError{Path: path, Expected: rv.Type().String(), Got: strconv.FormatFloat(f, 'g', -1, 64), Err: fmt.Errorf("%v overflows %s", f, rv.Type())}
		}
		rv.SetUint(uint64(f))
	case reflect.Float32, reflect.Float64:
		if v.Type() != jsrt.TypeNumber {
			return mismatch(path, "number", v)
		}
		if rv.OverflowFloat(v.Float()) {
			return &fberrors.DeserializationError{Path: path, Expected: rv.Type().String(), Got: "number", Err: fmt.Errorf("%v overflows %s", v.Float(), rv.Type())}
		}
		rv.SetFloat(v.Float())
	case reflect.Interface:
		if rv.NumMethod() > 0 {
			return mismatch(path, rv.Type().String(), v)
		}
		tree, err := toTree(path, v, depth)
		if err != nil {
			return err
		}
		if tree == nil {
			rv.Set(reflect.Zero(rv.Type()))
		} else {
			rv.Set(reflect.ValueOf(tree))
		}
	case reflect.Struct:
		return decodeStruct(path, v, rv, depth)
	case reflect.Map:
		return decodeMap(path, v, rv, depth)
	case reflect.Slice:
		if !v.IsArray() {
			return mismatch(path, "array", v)
		}
		n := v.Len()
		s := reflect.MakeSlice(rv.Type(), n, n)
		for i := 0; i < n; i++ {
			if err := decode(fmt.Sprintf("%s[%d]", path, i), v.Index(i), s.Index(i), depth+1); err != nil {
				return err
			}
		}
		rv.Set(s)
	case reflect.Array:
		if !v.IsArray() {
			return mismatch(path, "array", v)
		}
		n := v.Len()
		if n > rv.Len() {
			return &fberrors.DeserializationError{Path: path, Expected: rv.Type().String(), Got: fmt.Sprintf("array of %d", n)}
		}
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i)
			if i >= n {
				item.Set(reflect.Zero(item.Type()))
				continue
			}
			if err := decode(fmt.Sprintf("%s[%d]", path, i), v.Index(i), item, depth+1); err != nil {
				return err
			}
		}
	default:
		return &fberrors.DeserializationError{Path: path, Expected: rv.Type().String(), Got: describe(v), Err: fmt.Errorf("unsupported target type %s", rv.Type())}
	}
	return nil
}

func decodeStruct(path string, v jsrt.Value, rv reflect.Value, depth int) error {
	if !v.Type().IsObject() {
		return mismatch(path, "object", v)
	}
	for _, f := range fieldsOf(rv.Type()) {
		fpath := joinPath(path, f.name)
		jv := v.Get(f.name)
		if jsrt.IsNullish(jv) {
			if f.required {
				return &fberrors.DeserializationError{Path: fpath, Missing: true}
			}
			continue
		}
		fv, ok := fieldByIndex(rv, f.index, true)
		if !ok {
			continue
		}
		if err := decode(fpath, jv, fv, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func decodeMap(path string, v jsrt.Value, rv reflect.Value, depth int) error {
	if v.Type() != jsrt.TypeObject || v.IsArray() {
		return mismatch(path, "object", v)
	}
	mt := rv.Type()
	keys := v.Keys()
	if rv.IsNil() {
		rv.Set(reflect.MakeMapWithSize(mt, len(keys)))
	}
	for _, k := range keys {
		kv := reflect.New(mt.Key()).Elem()
		if err := parseKey(k, kv); err != nil {
			return &fberrors.DeserializationError{Path: joinPath(path, k), Expected: mt.Key().String(), Got: "string", Err: err}
		}
		ev := reflect.New(mt.Elem()).Elem()
		if err := decode(joinPath(path, k), v.Get(k), ev, depth+1); err != nil {
			return err
		}
		rv.SetMapIndex(kv, ev)
	}
	return nil
}

func parseKey(k string, kv reflect.Value) error {
	if kv.Kind() == reflect.String {
		kv.SetString(k)
		return nil
	}
	if reflect.PointerTo(kv.Type()).Implements(textUnmarshalerType) {
		return kv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(k))
	}
	switch kv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(k, 10, kv.Type().Bits())
		if err != nil {
			return err
		}
		kv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(k, 10, kv.Type().Bits())
		if err != nil {
			return err
		}
		kv.SetUint(n)
		return nil
	}
	return fmt.Errorf("unsupported map key type %s", kv.Type())
}

func integer(path string, v jsrt.Value) (float64, error) {
	if v.Type() != jsrt.TypeNumber {
		return 0, mismatch(path, "number", v)
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, &fberrors.DeserializationError{Path: path, Expected: "integer", Got: strconv.FormatFloat(f, 'g', -1, 64)}
	}
	return f, nil
}

// ToTree converts v into the generic form: nil, bool, float64, string,
// []byte, time.Time, []any and map[string]any. Functions and class
// instances other than dates stay as jsrt.Value. It must run on the JS
// thread.
func ToTree(v jsrt.Value) (any, error) {
	return toTree("", v, 0)
}

func toTree(path string, v jsrt.Value, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, &fberrors.DeserializationError{Path: path, Err: ErrDepth}
	}
	switch v.Type() {
	case jsrt.TypeUndefined, jsrt.TypeNull:
		return nil, nil
	case jsrt.TypeBoolean:
		return v.Bool(), nil
	case jsrt.TypeNumber:
		return v.Float(), nil
	case jsrt.TypeString, jsrt.TypeBigInt:
		return v.String(), nil
	case jsrt.TypeSymbol, jsrt.TypeFunction:
		return v, nil
	}

	switch {
	case v.IsBytes():
		return v.Bytes(), nil
	case v.IsArray():
		n := v.Len()
		out := make([]any, n)
		for i := 0; i < n; i++ {
			item, err := toTree(fmt.Sprintf("%s[%d]", path, i), v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}
	if t, ok := objectTime(v); ok {
		return t, nil
	}
	if !isPlainObject(v) {
		return v, nil
	}

	keys := v.Keys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		item, err := toTree(joinPath(path, k), v.Get(k), depth+1)
		if err != nil {
			return nil, err
		}
		out[k] = item
	}
	return out, nil
}

// toTime decodes into a time.Time target. Besides what objectTime accepts
// it takes epoch milliseconds, RFC 3339 strings and plain
// {seconds, nanoseconds} records.
func toTime(v jsrt.Value) (time.Time, bool) {
	switch v.Type() {
	case jsrt.TypeNumber:
		return time.UnixMilli(int64(v.Float())), true
	case jsrt.TypeString:
		t, err := time.Parse(time.RFC3339Nano, v.String())
		return t, err == nil
	case jsrt.TypeObject:
	default:
		return time.Time{}, false
	}

	if t, ok := objectTime(v); ok {
		return t, true
	}
	if sec, nsec, ok := secondsNanos(v); ok && len(v.Keys()) == 2 {
		return time.Unix(sec, nsec), true
	}
	return time.Time{}, false
}

// objectTime recognizes objects that are times by type: a Date, a Firestore
// Timestamp (toMillis plus seconds and nanoseconds, kept to the nanosecond)
// or anything else with toDate().
func objectTime(v jsrt.Value) (time.Time, bool) {
	if v.IsDate() {
		return v.Time(), true
	}
	if v.Get("toMillis").Type() == jsrt.TypeFunction {
		if sec, nsec, ok := secondsNanos(v); ok {
			return time.Unix(sec, nsec), true
		}
	}
	if v.Get("toDate").Type() == jsrt.TypeFunction {
		d, err := v.Call("toDate")
		if err == nil && d.IsDate() {
			return d.Time(), true
		}
	}
	return time.Time{}, false
}

func secondsNanos(v jsrt.Value) (int64, int64, bool) {
	sec, nsec := v.Get("seconds"), v.Get("nanoseconds")
	if sec.Type() != jsrt.TypeNumber || nsec.Type() != jsrt.TypeNumber {
		return 0, 0, false
	}
	return int64(sec.Float()), int64(nsec.Float()), true
}

// isPlainObject reports whether v was created by an object literal or
// Object.create(null).
func isPlainObject(v jsrt.Value) bool {
	ctor := v.Get("constructor")
	if jsrt.IsNullish(ctor) {
		return true
	}
	return ctor.Type() == jsrt.TypeFunction && ctor.Get("name").String() == "Object"
}

func mismatch(path, expected string, v jsrt.Value) error {
	return &fberrors.DeserializationError{Path: path, Expected: expected, Got: describe(v)}
}

func describe(v jsrt.Value) string {
	switch {
	case v.Type() != jsrt.TypeObject:
		return v.Type().String()
	case v.IsArray():
		return "array"
	case v.IsBytes():
		return "Uint8Array"
	case v.IsDate():
		return "Date"
	}
	return "object"
}
