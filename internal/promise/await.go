// Package promise bridges JS promises into blocking Go calls.
//
// A call is issued on the JS thread, the returned thenable gets a pair of Go
// callbacks, and the calling goroutine waits on a channel. The result is
// decoded on the JS thread inside the fulfillment callback, so the caller
// only ever receives Go values.
//
// JS promises cannot be cancelled. When ctx ends first, Await returns
// *fberrors.AbandonedError and the SDK operation keeps running; its result
// is decoded into a buffered channel nobody reads and then dropped. A realm
// that shuts down while a promise is pending abandons the wait the same way.
package promise

import (
	"context"
	"fmt"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Decoder converts a settled JS value into T. It runs on the JS thread.
type Decoder[T any] func(v jsrt.Value) (T, error)

type outcome[T any] struct {
	value T
	err   error
}

// Await runs call on the JS thread and waits for the promise it returns.
// Non-thenable results are treated as already fulfilled.
func Await[T any](ctx context.Context, realm jsrt.Realm, op string, call func() (jsrt.Value, error), decode Decoder[T]) (T, error) {
	var zero T
	ch := make(chan outcome[T], 1)

	err := realm.Run(ctx, func() error {
		v, err := call()
		if err != nil {
			return fberrors.Call(op, err)
		}
		if !jsrt.IsThenable(v) {
			ch <- settle(op, decode, v)
			return nil
		}

		var onFulfilled, onRejected jsrt.Func
		release := func() {
			onFulfilled.Release()
			onRejected.Release()
		}
		onFulfilled = realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			defer release()
			ch <- settle(op, decode, jsrt.Arg(realm, args, 0))
			return realm.Undefined()
		})
		onRejected = realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			defer release()
			ch <- outcome[T]{err: fberrors.FromException(op, jsrt.NewException(jsrt.Arg(realm, args, 0)))}
			return realm.Undefined()
		})

		if _, err := v.Call("then", onFulfilled, onRejected); err != nil {
			release()
			return fberrors.Call(op, err)
		}
		return nil
	})
	if err != nil {
		if ae := fberrors.Abandon(ctx, op, err); ae != nil {
			return zero, ae
		}
		return zero, err
	}

	select {
	case o := <-ch:
		return o.value, o.err
	case <-ctx.Done():
		return zero, &fberrors.AbandonedError{Op: op, Err: ctx.Err()}
	case <-realm.Done():
		return zero, &fberrors.AbandonedError{Op: op, Err: jsrt.ErrClosed}
	}
}

// settle decodes a fulfilled value. A panicking decoder must not leave the
// caller waiting forever.
func settle[T any](op string, decode Decoder[T], v jsrt.Value) (o outcome[T]) {
	defer func() {
		if p := recover(); p != nil {
			o = outcome[T]{err: &fberrors.DeserializationError{Err: fmt.Errorf("%s: decoder panic: %v", op, p)}}
		}
	}()
	value, err := decode(v)
	if err != nil {
		return outcome[T]{err: fberrors.Call(op, err)}
	}
	return outcome[T]{value: value}
}

// Ignore discards the fulfilled value.
func Ignore(jsrt.Value) (struct{}, error) {
	return struct{}{}, nil
}

// Raw returns the fulfilled value itself, for results that become handles.
func Raw(v jsrt.Value) (jsrt.Value, error) {
	return v, nil
}

// Void awaits a promise whose value is not needed.
func Void(ctx context.Context, realm jsrt.Realm, op string, call func() (jsrt.Value, error)) error {
	_, err := Await(ctx, realm, op, call, Ignore)
	return err
}
