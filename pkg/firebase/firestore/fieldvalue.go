package firestore

import (
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// FieldValue is a write sentinel resolved by the server, such as
// ServerTimestamp. Use it as a field value in Set, Update and Add.
type FieldValue struct {
	fn string
	// args are already encoded, so later changes to the caller's values
	// do not reach the write.
	args []any
	err  error
}

func fieldValue(fn string, args ...any) FieldValue {
	f := FieldValue{fn: fn}
	for _, a := range args {
		tree, err := serde.Encode(a)
		if err != nil {
			f.err = err
			return f
		}
		f.args = append(f.args, tree)
	}
	return f
}

// ServerTimestamp is replaced with the commit time.
func ServerTimestamp() FieldValue { return FieldValue{fn: "serverTimestamp"} }

// DeleteField removes the field. Only valid in Update and merging Set.
func DeleteField() FieldValue { return FieldValue{fn: "deleteField"} }

// Increment adds n to the field's numeric value.
func Increment(n float64) FieldValue { return fieldValue("increment", n) }

// ArrayUnion adds elements not already present in the array field.
func ArrayUnion(elems ...any) FieldValue { return fieldValue("arrayUnion", elems...) }

// ArrayRemove removes all instances of elems from the array field.
func ArrayRemove(elems ...any) FieldValue { return fieldValue("arrayRemove", elems...) }

// MarshalJS asks the SDK for the sentinel object.
func (f FieldValue) MarshalJS(r jsrt.Realm) (jsrt.Value, error) {
	if f.err != nil {
		return nil, f.err
	}
	args := make([]jsrt.Value, len(f.args))
	for i, a := range f.args {
		v, err := serde.Materialize(r, a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return sdk.Call(r, sdk.Firestore, f.fn, args...)
}
