package firestore

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/listener"
	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

var errNotObject = errors.New("document data must encode to an object")

type setOptions struct {
	Merge       bool     `js:"merge,omitempty"`
	MergeFields []string `js:"mergeFields,omitempty"`
}

// SetOption changes Set from overwrite to merge.
type SetOption func(*setOptions)

// Merge merges data into the existing document.
func Merge() SetOption {
	return func(o *setOptions) { o.Merge = true }
}

// MergeFields only writes the listed field paths.
func MergeFields(fields ...string) SetOption {
	return func(o *setOptions) { o.MergeFields = append(o.MergeFields, fields...) }
}

func buildSetOptions(opts []SetOption) (*setOptions, error) {
	if len(opts) == 0 {
		return nil, nil
	}
	o := &setOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Merge && len(o.MergeFields) > 0 {
		return nil, &fberrors.ValidationError{Builder: "firestore.SetOptions", Message: "Merge and MergeFields are mutually exclusive"}
	}
	return o, nil
}

// encodeData serializes document data up front, so later changes to the
// caller's value do not leak into the write.
func encodeData(data any) (any, error) {
	tree, err := serde.Encode(data)
	if err != nil {
		return nil, err
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, &fberrors.SerializationError{Type: "document data", Err: errNotObject}
	}
	return tree, nil
}

// Get reads the document.
func (d *DocumentRef) Get(ctx context.Context) (*DocumentSnapshot, error) {
	return promise.Await(ctx, d.fs.realm, "firestore.getDoc", func() (jsrt.Value, error) {
		return d.fs.call("getDoc", d.value)
	}, d.fs.decodeSnapshot)
}

// Set writes data to the document, creating it if needed. data is a struct
// or map; FieldValue sentinels may appear as field values.
func (d *DocumentRef) Set(ctx context.Context, data any, opts ...SetOption) error {
	so, err := buildSetOptions(opts)
	if err != nil {
		return err
	}
	tree, err := encodeData(data)
	if err != nil {
		return err
	}
	err = promise.Void(ctx, d.fs.realm, "firestore.setDoc", func() (jsrt.Value, error) {
		args, err := d.fs.writeArgs(d.value, tree, so)
		if err != nil {
			return nil, err
		}
		return d.fs.call("setDoc", args...)
	})
	if err != nil {
		return err
	}
	d.fs.logger.Debug("Document written", zap.String("path", d.Path), zap.Bool("merge", so != nil))
	return nil
}

// Update changes fields of an existing document. Keys may be dotted field
// paths. It fails with a not-found error if the document does not exist.
func (d *DocumentRef) Update(ctx context.Context, data map[string]any) error {
	tree, err := encodeData(data)
	if err != nil {
		return err
	}
	err = promise.Void(ctx, d.fs.realm, "firestore.updateDoc", func() (jsrt.Value, error) {
		args, err := d.fs.writeArgs(d.value, tree, nil)
		if err != nil {
			return nil, err
		}
		return d.fs.call("updateDoc", args...)
	})
	if err != nil {
		return err
	}
	d.fs.logger.Debug("Document updated", zap.String("path", d.Path))
	return nil
}

// Delete removes the document. Deleting a missing document succeeds.
func (d *DocumentRef) Delete(ctx context.Context) error {
	err := promise.Void(ctx, d.fs.realm, "firestore.deleteDoc", func() (jsrt.Value, error) {
		return d.fs.call("deleteDoc", d.value)
	})
	if err != nil {
		return err
	}
	d.fs.logger.Debug("Document deleted", zap.String("path", d.Path))
	return nil
}

// Add creates a document with an auto-generated id.
func (c *CollectionRef) Add(ctx context.Context, data any) (*DocumentRef, error) {
	tree, err := encodeData(data)
	if err != nil {
		return nil, err
	}
	return promise.Await(ctx, c.fs.realm, "firestore.addDoc", func() (jsrt.Value, error) {
		args, err := c.fs.writeArgs(c.value, tree, nil)
		if err != nil {
			return nil, err
		}
		return c.fs.call("addDoc", args...)
	}, func(v jsrt.Value) (*DocumentRef, error) {
		return c.fs.docRef(v), nil
	})
}

// writeArgs builds (target, data[, options]). It runs on the JS thread.
func (fs *Firestore) writeArgs(target jsrt.Value, tree any, so *setOptions) ([]jsrt.Value, error) {
	data, err := serde.Materialize(fs.realm, tree)
	if err != nil {
		return nil, err
	}
	args := []jsrt.Value{target, data}
	if so != nil {
		opts, err := serde.Marshal(fs.realm, so)
		if err != nil {
			return nil, err
		}
		args = append(args, opts)
	}
	return args, nil
}

// Unsubscribe stops a listener. It is safe to call more than once and from
// inside the listener.
type Unsubscribe func()

type snapshotEvent struct {
	snap *DocumentSnapshot
	err  error
}

// OnSnapshot calls fn with the document's current state and again after
// every change. On a listen error fn gets a nil snapshot and the error, and
// no further events follow. fn runs on its own goroutine, one event at a
// time.
func (d *DocumentRef) OnSnapshot(ctx context.Context, fn func(*DocumentSnapshot, error)) (Unsubscribe, error) {
	const op = "firestore.onSnapshot"
	realm := d.fs.realm
	disp := listener.New(d.fs.logger, op, func(ev snapshotEvent) { fn(ev.snap, ev.err) })

	undo, err := listener.Register(ctx, realm, func() (func(), error) {
		next := realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			snap, err := d.fs.decodeSnapshot(jsrt.Arg(realm, args, 0))
			disp.Push(snapshotEvent{snap: snap, err: err})
			return realm.Undefined()
		})
		onError := realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			exc := jsrt.NewException(jsrt.Arg(realm, args, 0))
			disp.Push(snapshotEvent{err: fberrors.FromException(op, exc)})
			return realm.Undefined()
		})
		unsubscribe, err := d.fs.call("onSnapshot", d.value, next, onError)
		if err != nil {
			next.Release()
			onError.Release()
			return nil, err
		}
		return func() {
			defer next.Release()
			defer onError.Release()
			if _, err := unsubscribe.Invoke(); err != nil {
				d.fs.logger.Warn("Failed to unsubscribe document listener", zap.String("path", d.Path), zap.Error(err))
			}
		}, nil
	})
	if err != nil {
		disp.Close()
		if ae := fberrors.Abandon(ctx, op, err); ae != nil {
			return nil, ae
		}
		return nil, fberrors.Construction(op, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			disp.Close()
			err := realm.Run(context.Background(), func() error {
				undo()
				return nil
			})
			if err != nil {
				d.fs.logger.Warn("Failed to unsubscribe document listener", zap.String("path", d.Path), zap.Error(err))
			}
		})
	}, nil
}
