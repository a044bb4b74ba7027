package serde

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Materialize builds a fresh JS value from a tree produced by Encode.
// Object keys are written in sorted order. It must run on the JS thread.
func Materialize(r jsrt.Realm, tree any) (jsrt.Value, error) {
	return materialize(r, "", tree, 0)
}

// Marshal encodes v and materializes the result.
func Marshal(r jsrt.Realm, v any) (jsrt.Value, error) {
	tree, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Materialize(r, tree)
}

func materialize(r jsrt.Realm, path string, node any, depth int) (jsrt.Value, error) {
	if depth > MaxDepth {
		return nil, &fberrors.SerializationError{Path: path, Type: fmt.Sprintf("%T", node), Err: fmt.Errorf("exceeds max depth %d", MaxDepth)}
	}

	switch t := node.(type) {
	case nil:
		return r.Null(), nil
	case Marshaler:
		v, err := t.MarshalJS(r)
		if err != nil {
			return nil, &fberrors.SerializationError{Path: path, Type: fmt.Sprintf("%T", node), Err: err}
		}
		return v, nil
	case jsrt.Value:
		return t, nil
	case bool, string, int64, uint64, float64, int, []byte, time.Time:
		return r.ValueOf(t), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := r.NewObject()
		for _, k := range keys {
			v, err := materialize(r, joinPath(path, k), t[k], depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	case []any:
		items := make([]jsrt.Value, len(t))
		for i, item := range t {
			v, err := materialize(r, fmt.Sprintf("%s[%d]", path, i), item, depth+1)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return r.NewArray(items...), nil
	}

	// Values that did not come from Encode, e.g. int32 or named strings.
	tree, err := encode(path, reflect.ValueOf(node), depth)
	if err != nil {
		return nil, err
	}
	return materialize(r, path, tree, depth+1)
}
