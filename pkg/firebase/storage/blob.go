package storage

import (
	"context"
	"fmt"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Blob is a handle to a JS Blob.
type Blob struct {
	realm jsrt.Realm
	value jsrt.Value
	size  int64
	typ   string
}

// NewBlob creates a Blob holding a copy of data.
func NewBlob(ctx context.Context, realm jsrt.Realm, data []byte, contentType string) (*Blob, error) {
	return sdk.Sync(ctx, realm, "storage.newBlob", func() (*Blob, error) {
		opts := realm.NewObject()
		opts.Set("type", realm.ValueOf(contentType))
		parts := realm.NewArray(realm.ValueOf(data))
		v, err := realm.Global().Get("Blob").New(parts, opts)
		if err != nil {
			return nil, err
		}
		return wrapBlob(realm, v)
	})
}

func wrapBlob(realm jsrt.Realm, v jsrt.Value) (*Blob, error) {
	size := v.Get("size")
	if size.Type() != jsrt.TypeNumber {
		return nil, &fberrors.DeserializationError{Path: "size", Expected: "number", Got: size.Type().String()}
	}
	return &Blob{realm: realm, value: v, size: int64(size.Float()), typ: v.Get("type").String()}, nil
}

func (b *Blob) Size() int64 { return b.size }
func (b *Blob) Type() string { return b.typ }
func (b *Blob) JSValue() jsrt.Value { return b.value }

// Bytes reads the blob contents with arrayBuffer().
func (b *Blob) Bytes(ctx context.Context) ([]byte, error) {
	return promise.Await(ctx, b.realm, "storage.blob.arrayBuffer", func() (jsrt.Value, error) {
		return b.value.Call("arrayBuffer")
	}, func(v jsrt.Value) ([]byte, error) {
		return bytesOf(b.realm, v)
	})
}

// bytesOf copies a Uint8Array or ArrayBuffer. It runs on the JS thread.
func bytesOf(realm jsrt.Realm, v jsrt.Value) ([]byte, error) {
	if v.IsBytes() {
		return v.Bytes(), nil
	}
	view, err := realm.Global().Get("Uint8Array").New(v)
	if err != nil {
		return nil, err
	}
	if !view.IsBytes() {
		return nil, &fberrors.DeserializationError{Expected: "ArrayBuffer", Got: fmt.Sprint(v.Type())}
	}
	return view.Bytes(), nil
}
