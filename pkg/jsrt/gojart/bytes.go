package gojart

import (
	"github.com/dop251/goja"
)

// Byte transfer between Go and goja always copies. A Uint8Array handed to
// JS must not alias a Go slice the caller keeps mutating, and bytes read
// back must survive the JS side detaching or reusing its buffer.

// newUint8Array copies data into a fresh Uint8Array.
func (r *Runtime) newUint8Array(data []byte) goja.Value {
	buf := make([]byte, len(data))
	copy(buf, data)
	ab := r.vm.NewArrayBuffer(buf)
	obj, err := r.vm.New(r.vm.Get("Uint8Array"), r.vm.ToValue(ab))
	if err != nil {
		panic(err)
	}
	return obj
}

// copyTypedArray copies the bytes visible through a typed array view.
func copyTypedArray(obj *goja.Object) []byte {
	ab, ok := obj.Get("buffer").Export().(goja.ArrayBuffer)
	if !ok {
		return nil
	}
	off := int(obj.Get("byteOffset").ToInteger())
	n := int(obj.Get("byteLength").ToInteger())
	src := ab.Bytes()
	if off < 0 || n < 0 || off+n > len(src) {
		return nil
	}
	out := make([]byte, n)
	copy(out, src[off:off+n])
	return out
}

// bytesArg reads a Uint8Array argument, or nil for anything else.
func (r *Runtime) bytesArg(v goja.Value) []byte {
	obj, ok := v.(*goja.Object)
	if !ok || !r.helperTest(r.helpers.isBytes, v) {
		return nil
	}
	return copyTypedArray(obj)
}
