package firestore

import (
	"context"

	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DocumentRef is a handle to a DocumentReference.
type DocumentRef struct {
	ID   string
	Path string

	fs    *Firestore
	value jsrt.Value
}

// CollectionRef is a handle to a CollectionReference.
type CollectionRef struct {
	ID   string
	Path string

	fs    *Firestore
	value jsrt.Value
}

func (fs *Firestore) docRef(v jsrt.Value) *DocumentRef {
	return &DocumentRef{ID: v.Get("id").String(), Path: v.Get("path").String(), fs: fs, value: v}
}

func (fs *Firestore) collectionRef(v jsrt.Value) *CollectionRef {
	return &CollectionRef{ID: v.Get("id").String(), Path: v.Get("path").String(), fs: fs, value: v}
}

func (d *DocumentRef) JSValue() jsrt.Value { return d.value }
func (c *CollectionRef) JSValue() jsrt.Value { return c.value }

// MarshalJS lets references be stored as field values.
func (d *DocumentRef) MarshalJS(jsrt.Realm) (jsrt.Value, error) { return d.value, nil }

// Collection returns the subcollection id of this document.
func (d *DocumentRef) Collection(ctx context.Context, id string) (*CollectionRef, error) {
	return sdk.Sync(ctx, d.fs.realm, "firestore.collection", func() (*CollectionRef, error) {
		v, err := d.fs.call("collection", d.value, d.fs.realm.ValueOf(id))
		if err != nil {
			return nil, err
		}
		return d.fs.collectionRef(v), nil
	})
}

// Parent returns the collection containing this document.
func (d *DocumentRef) Parent(ctx context.Context) (*CollectionRef, error) {
	return sdk.Sync(ctx, d.fs.realm, "firestore.parent", func() (*CollectionRef, error) {
		return d.fs.collectionRef(d.value.Get("parent")), nil
	})
}

// Doc returns the document id of this collection. An empty id asks the SDK
// for an auto-generated one.
func (c *CollectionRef) Doc(ctx context.Context, id string) (*DocumentRef, error) {
	return sdk.Sync(ctx, c.fs.realm, "firestore.doc", func() (*DocumentRef, error) {
		args := []jsrt.Value{c.value}
		if id != "" {
			args = append(args, c.fs.realm.ValueOf(id))
		}
		v, err := c.fs.call("doc", args...)
		if err != nil {
			return nil, err
		}
		return c.fs.docRef(v), nil
	})
}

// Parent returns the document containing this subcollection, or nil for a
// root collection.
func (c *CollectionRef) Parent(ctx context.Context) (*DocumentRef, error) {
	return sdk.Sync(ctx, c.fs.realm, "firestore.parent", func() (*DocumentRef, error) {
		p := c.value.Get("parent")
		if jsrt.IsNullish(p) {
			return nil, nil
		}
		return c.fs.docRef(p), nil
	})
}

// Query starts a query over this collection.
func (c *CollectionRef) Query() Query {
	return NewQuery(c)
}
