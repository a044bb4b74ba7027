// Package firestore binds firebase/firestore: document and collection
// references, reads and writes, queries, batched writes and document
// listeners.
//
// Reference constructors only build handles. Network I/O happens in the
// methods taking a context that return after a promise settles.
package firestore

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Firestore is a handle to the Firestore instance of an app.
type Firestore struct {
	app    *firebase.App
	realm  jsrt.Realm
	value  jsrt.Value
	logger *zap.Logger
}

// Get calls getFirestore(app).
func Get(ctx context.Context, app *firebase.App) (*Firestore, error) {
	realm := app.Realm()
	v, err := sdk.Sync(ctx, realm, "firestore.getFirestore", func() (jsrt.Value, error) {
		return sdk.Call(realm, sdk.Firestore, "getFirestore", app.JSValue())
	})
	if err != nil {
		return nil, err
	}
	return &Firestore{
		app:    app,
		realm:  realm,
		value:  v,
		logger: app.Logger().With(zap.String("component", "firestore")),
	}, nil
}

func (fs *Firestore) App() *firebase.App { return fs.app }

// call invokes a firebase/firestore export. It must run on the JS thread.
func (fs *Firestore) call(fn string, args ...jsrt.Value) (jsrt.Value, error) {
	return sdk.Call(fs.realm, sdk.Firestore, fn, args...)
}

func (fs *Firestore) strings(first string, rest []string) []jsrt.Value {
	out := make([]jsrt.Value, 0, len(rest)+1)
	out = append(out, fs.realm.ValueOf(first))
	for _, s := range rest {
		out = append(out, fs.realm.ValueOf(s))
	}
	return out
}

// Doc calls doc(firestore, path, ...segments). The joined path must have an
// even number of segments.
func (fs *Firestore) Doc(ctx context.Context, path string, segments ...string) (*DocumentRef, error) {
	return sdk.Sync(ctx, fs.realm, "firestore.doc", func() (*DocumentRef, error) {
		v, err := fs.call("doc", append([]jsrt.Value{fs.value}, fs.strings(path, segments)...)...)
		if err != nil {
			return nil, err
		}
		return fs.docRef(v), nil
	})
}

// Collection calls collection(firestore, path, ...segments). The joined path
// must have an odd number of segments.
func (fs *Firestore) Collection(ctx context.Context, path string, segments ...string) (*CollectionRef, error) {
	return sdk.Sync(ctx, fs.realm, "firestore.collection", func() (*CollectionRef, error) {
		v, err := fs.call("collection", append([]jsrt.Value{fs.value}, fs.strings(path, segments)...)...)
		if err != nil {
			return nil, err
		}
		return fs.collectionRef(v), nil
	})
}
