// Package sdk holds the Firebase module specifiers and the helpers used to
// call their exported functions.
package sdk

import (
	"context"

	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Module specifiers of the Firebase v9 modular SDK.
const (
	App       = "firebase/app"
	Auth      = "firebase/auth"
	Firestore = "firebase/firestore"
	Storage   = "firebase/storage"
)

// Call invokes module.fn(args...). It must run on the JS thread.
func Call(realm jsrt.Realm, module, fn string, args ...jsrt.Value) (jsrt.Value, error) {
	mod, err := realm.Require(module)
	if err != nil {
		return nil, err
	}
	return mod.Call(fn, args...)
}

// Sync runs a synchronous SDK call on the JS thread. Throws become
// *fberrors.ConstructionError; already typed errors pass through. A ctx
// that ends first, or a closed realm, yields *fberrors.AbandonedError.
func Sync[T any](ctx context.Context, realm jsrt.Realm, op string, fn func() (T, error)) (T, error) {
	var out T
	err := realm.Run(ctx, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		if ae := fberrors.Abandon(ctx, op, err); ae != nil {
			return zero, ae
		}
		return zero, fberrors.Construction(op, err)
	}
	return out, nil
}
