package firestore

import (
	"context"
	"fmt"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DocumentSnapshot is the state of a document at read time.
type DocumentSnapshot struct {
	ID     string
	Path   string
	Exists bool
	Ref    *DocumentRef

	data map[string]any
	raw  jsrt.Value
}

// Data returns the document fields, or nil when the document does not
// exist. Timestamps decode to time.Time and byte fields to []byte.
func (s *DocumentSnapshot) Data() map[string]any {
	return s.data
}

// DataTo decodes the document fields into out, which must be a pointer.
func (s *DocumentSnapshot) DataTo(ctx context.Context, out any) error {
	if !s.Exists {
		return &fberrors.DeserializationError{Err: fmt.Errorf("document %s does not exist", s.Path)}
	}
	return s.Ref.fs.realm.Run(ctx, func() error {
		return serde.Unmarshal(s.raw, out)
	})
}

// QuerySnapshot is the result of a query.
type QuerySnapshot struct {
	Docs  []*DocumentSnapshot
	Size  int
	Empty bool
}

// decodeSnapshot runs on the JS thread.
func (fs *Firestore) decodeSnapshot(v jsrt.Value) (*DocumentSnapshot, error) {
	if !v.Type().IsObject() {
		return nil, &fberrors.DeserializationError{Expected: "DocumentSnapshot", Got: v.Type().String()}
	}
	ref := fs.docRef(v.Get("ref"))
	snap := &DocumentSnapshot{ID: ref.ID, Path: ref.Path, Ref: ref}

	exists, err := v.Call("exists")
	if err != nil {
		return nil, err
	}
	snap.Exists = exists.Truthy()
	if !snap.Exists {
		return snap, nil
	}

	raw, err := v.Call("data")
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := serde.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	snap.data = data
	snap.raw = raw
	return snap, nil
}

func (fs *Firestore) decodeQuerySnapshot(v jsrt.Value) (*QuerySnapshot, error) {
	docs := v.Get("docs")
	if !docs.IsArray() {
		return nil, &fberrors.DeserializationError{Path: "docs", Expected: "array", Got: docs.Type().String()}
	}
	qs := &QuerySnapshot{Docs: make([]*DocumentSnapshot, 0, docs.Len())}
	for i := 0; i < docs.Len(); i++ {
		snap, err := fs.decodeSnapshot(docs.Index(i))
		if err != nil {
			if de, ok := err.(*fberrors.DeserializationError); ok {
				de.Path = fmt.Sprintf("docs[%d]%s", i, prefixDot(de.Path))
			}
			return nil, err
		}
		qs.Docs = append(qs.Docs, snap)
	}
	qs.Size = len(qs.Docs)
	qs.Empty = qs.Size == 0
	return qs, nil
}

func prefixDot(path string) string {
	if path == "" {
		return ""
	}
	return "." + path
}
