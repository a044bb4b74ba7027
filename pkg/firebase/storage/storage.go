// Package storage binds firebase/storage: object references, uploads,
// downloads, metadata and listing.
package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Storage is a handle to a FirebaseStorage instance bound to one bucket.
type Storage struct {
	app    *firebase.App
	realm  jsrt.Realm
	value  jsrt.Value
	logger *zap.Logger
}

// Get calls getStorage(app, bucketURL). Without a bucket URL the app's
// storageBucket option is used.
func Get(ctx context.Context, app *firebase.App, bucketURL ...string) (*Storage, error) {
	realm := app.Realm()
	v, err := sdk.Sync(ctx, realm, "storage.getStorage", func() (jsrt.Value, error) {
		args := []jsrt.Value{app.JSValue()}
		if len(bucketURL) > 0 && bucketURL[0] != "" {
			args = append(args, realm.ValueOf(bucketURL[0]))
		}
		return sdk.Call(realm, sdk.Storage, "getStorage", args...)
	})
	if err != nil {
		return nil, err
	}
	return &Storage{
		app:    app,
		realm:  realm,
		value:  v,
		logger: app.Logger().With(zap.String("component", "storage")),
	}, nil
}

func (s *Storage) App() *firebase.App { return s.app }

func (s *Storage) call(fn string, args ...jsrt.Value) (jsrt.Value, error) {
	return sdk.Call(s.realm, sdk.Storage, fn, args...)
}

// Ref calls ref(storage, path). path may be a gs:// URL; an empty path is
// the bucket root.
func (s *Storage) Ref(ctx context.Context, path string) (*Reference, error) {
	return sdk.Sync(ctx, s.realm, "storage.ref", func() (*Reference, error) {
		v, err := s.call("ref", s.value, s.realm.ValueOf(path))
		if err != nil {
			return nil, err
		}
		return s.reference(v), nil
	})
}
