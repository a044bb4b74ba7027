package serde

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Marshaler is implemented by values that build their own JS
// representation, such as Firestore field sentinels. MarshalJS runs on the
// JS thread during Materialize.
type Marshaler interface {
	MarshalJS(r jsrt.Realm) (jsrt.Value, error)
}

var (
	timeType      = reflect.TypeOf(time.Time{})
	bytesType     = reflect.TypeOf([]byte(nil))
	valueType     = reflect.TypeOf((*jsrt.Value)(nil)).Elem()
	marshalerType = reflect.TypeOf((*Marshaler)(nil)).Elem()
	textType      = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Encode converts v into a tree made of nil, bool, string, int64, uint64,
// float64, []byte, time.Time, map[string]any, []any, jsrt.Value and
// Marshaler. The tree holds no references into v.
func Encode(v any) (any, error) {
	return encode("", reflect.ValueOf(v), 0)
}

func encode(path string, v reflect.Value, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, &fberrors.SerializationError{Path: path, Type: typeName(v), Err: fmt.Errorf("exceeds max depth %d", MaxDepth)}
	}
	if !v.IsValid() {
		return nil, nil
	}

	t := v.Type()
	switch {
	case t.Implements(marshalerType), t.Implements(valueType):
		if (t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface) && v.IsNil() {
			return nil, nil
		}
		return v.Interface(), nil
	case t == timeType:
		return v.Interface().(time.Time), nil
	case t == bytesType || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8):
		if v.IsNil() {
			return nil, nil
		}
		return append([]byte(nil), v.Bytes()...), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return encode(path, v.Elem(), depth+1)
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Struct:
		return encodeStruct(path, v, depth)
	case reflect.Map:
		return encodeMap(path, v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			item, err := encode(fmt.Sprintf("%s[%d]", path, i), v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	}
	return nil, &fberrors.SerializationError{Path: path, Type: t.String()}
}

func encodeStruct(path string, v reflect.Value, depth int) (any, error) {
	out := make(map[string]any)
	for _, f := range fieldsOf(v.Type()) {
		fv, ok := fieldByIndex(v, f.index, false)
		if !ok {
			continue
		}
		if f.omitempty && isEmptyValue(fv) {
			continue
		}
		item, err := encode(joinPath(path, f.name), fv, depth+1)
		if err != nil {
			return nil, err
		}
		out[f.name] = item
	}
	return out, nil
}

func encodeMap(path string, v reflect.Value, depth int) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	out := make(map[string]any, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := mapKey(iter.Key())
		if err != nil {
			return nil, &fberrors.SerializationError{Path: path, Type: v.Type().String(), Err: err}
		}
		item, err := encode(joinPath(path, key), iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = item
	}
	return out, nil
}

func mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if k.Type().Implements(textType) {
		b, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(b), err
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", fmt.Errorf("unsupported map key type %s", k.Type())
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
