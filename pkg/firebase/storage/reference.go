package storage

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Reference is a handle to a StorageReference.
type Reference struct {
	Bucket   string
	FullPath string
	Name     string

	st    *Storage
	value jsrt.Value
}

func (s *Storage) reference(v jsrt.Value) *Reference {
	return &Reference{
		Bucket:   v.Get("bucket").String(),
		FullPath: v.Get("fullPath").String(),
		Name:     v.Get("name").String(),
		st:       s,
		value:    v,
	}
}

func (r *Reference) JSValue() jsrt.Value { return r.value }

// String returns the gs:// URL of the object.
func (r *Reference) String() string {
	return "gs://" + r.Bucket + "/" + r.FullPath
}

// IsRoot reports whether r points at the bucket root.
func (r *Reference) IsRoot() bool {
	return r.FullPath == ""
}

// Child returns the reference at path below r.
func (r *Reference) Child(ctx context.Context, path string) (*Reference, error) {
	return sdk.Sync(ctx, r.st.realm, "storage.ref", func() (*Reference, error) {
		v, err := r.st.call("ref", r.value, r.st.realm.ValueOf(path))
		if err != nil {
			return nil, err
		}
		return r.st.reference(v), nil
	})
}

// Parent returns the enclosing reference, or nil at the root.
func (r *Reference) Parent(ctx context.Context) (*Reference, error) {
	return sdk.Sync(ctx, r.st.realm, "storage.parent", func() (*Reference, error) {
		p := r.value.Get("parent")
		if jsrt.IsNullish(p) {
			return nil, nil
		}
		return r.st.reference(p), nil
	})
}

// Root returns the bucket root.
func (r *Reference) Root(ctx context.Context) (*Reference, error) {
	return sdk.Sync(ctx, r.st.realm, "storage.root", func() (*Reference, error) {
		return r.st.reference(r.value.Get("root")), nil
	})
}

// UploadResult is the outcome of an upload.
type UploadResult struct {
	Ref      *Reference
	Metadata *FullMetadata
}

func (r *Reference) decodeUpload(v jsrt.Value) (*UploadResult, error) {
	var wire struct {
		Ref      jsrt.Value `js:"ref,required"`
		Metadata jsrt.Value `js:"metadata,required"`
	}
	if err := serde.Unmarshal(v, &wire); err != nil {
		return nil, err
	}
	md, err := decodeFullMetadata(wire.Metadata)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Ref: r.st.reference(wire.Ref), Metadata: md}, nil
}

func checkMetadata(md *Metadata) error {
	if md != nil && md.IsZero() {
		return &fberrors.ValidationError{Builder: "storage.Metadata", Message: "metadata was not produced by MetadataBuilder.Build"}
	}
	return nil
}

func (r *Reference) upload(ctx context.Context, op string, data func() jsrt.Value, md *Metadata) (*UploadResult, error) {
	if err := checkMetadata(md); err != nil {
		return nil, err
	}
	res, err := promise.Await(ctx, r.st.realm, op, func() (jsrt.Value, error) {
		args := []jsrt.Value{r.value, data()}
		if md != nil {
			m, err := md.MarshalJS(r.st.realm)
			if err != nil {
				return nil, err
			}
			args = append(args, m)
		}
		return r.st.call("uploadBytes", args...)
	}, r.decodeUpload)
	if err != nil {
		return nil, err
	}
	r.st.logger.Info("Object uploaded",
		zap.String("path", r.FullPath),
		zap.Int64("size", res.Metadata.Size),
	)
	return res, nil
}

// UploadBytes uploads data. md may be nil.
func (r *Reference) UploadBytes(ctx context.Context, data []byte, md *Metadata) (*UploadResult, error) {
	return r.upload(ctx, "storage.uploadBytes", func() jsrt.Value {
		return r.st.realm.ValueOf(data)
	}, md)
}

// UploadBlob uploads a Blob. Without an explicit content type the blob's
// type is used.
func (r *Reference) UploadBlob(ctx context.Context, blob *Blob, md *Metadata) (*UploadResult, error) {
	return r.upload(ctx, "storage.uploadBlob", blob.JSValue, md)
}

// DownloadURL returns a long-lived download URL.
func (r *Reference) DownloadURL(ctx context.Context) (string, error) {
	return promise.Await(ctx, r.st.realm, "storage.getDownloadURL", func() (jsrt.Value, error) {
		return r.st.call("getDownloadURL", r.value)
	}, func(v jsrt.Value) (string, error) {
		var s string
		err := serde.Unmarshal(v, &s)
		return s, err
	})
}

// Bytes downloads the object. maxSize > 0 truncates the download.
func (r *Reference) Bytes(ctx context.Context, maxSize int64) ([]byte, error) {
	return promise.Await(ctx, r.st.realm, "storage.getBytes", func() (jsrt.Value, error) {
		args := []jsrt.Value{r.value}
		if maxSize > 0 {
			args = append(args, r.st.realm.ValueOf(maxSize))
		}
		return r.st.call("getBytes", args...)
	}, func(v jsrt.Value) ([]byte, error) {
		return bytesOf(r.st.realm, v)
	})
}

// Blob downloads the object as a Blob.
func (r *Reference) Blob(ctx context.Context) (*Blob, error) {
	return promise.Await(ctx, r.st.realm, "storage.getBlob", func() (jsrt.Value, error) {
		return r.st.call("getBlob", r.value)
	}, func(v jsrt.Value) (*Blob, error) {
		return wrapBlob(r.st.realm, v)
	})
}

func (r *Reference) Metadata(ctx context.Context) (*FullMetadata, error) {
	return promise.Await(ctx, r.st.realm, "storage.getMetadata", func() (jsrt.Value, error) {
		return r.st.call("getMetadata", r.value)
	}, decodeFullMetadata)
}

// UpdateMetadata changes the fields set in md and returns the result.
func (r *Reference) UpdateMetadata(ctx context.Context, md Metadata) (*FullMetadata, error) {
	if err := checkMetadata(&md); err != nil {
		return nil, err
	}
	return promise.Await(ctx, r.st.realm, "storage.updateMetadata", func() (jsrt.Value, error) {
		m, err := md.MarshalJS(r.st.realm)
		if err != nil {
			return nil, err
		}
		return r.st.call("updateMetadata", r.value, m)
	}, decodeFullMetadata)
}

func (r *Reference) Delete(ctx context.Context) error {
	err := promise.Void(ctx, r.st.realm, "storage.deleteObject", func() (jsrt.Value, error) {
		return r.st.call("deleteObject", r.value)
	})
	if err != nil {
		return err
	}
	r.st.logger.Info("Object deleted", zap.String("path", r.FullPath))
	return nil
}

// ListResult is one page of a listing.
type ListResult struct {
	Items         []*Reference
	Prefixes      []*Reference
	NextPageToken string
}

func (s *Storage) decodeList(v jsrt.Value) (*ListResult, error) {
	var wire struct {
		Items         []jsrt.Value `js:"items,required"`
		Prefixes      []jsrt.Value `js:"prefixes,required"`
		NextPageToken string       `js:"nextPageToken"`
	}
	if err := serde.Unmarshal(v, &wire); err != nil {
		return nil, err
	}
	res := &ListResult{NextPageToken: wire.NextPageToken}
	for _, item := range wire.Items {
		res.Items = append(res.Items, s.reference(item))
	}
	for _, p := range wire.Prefixes {
		res.Prefixes = append(res.Prefixes, s.reference(p))
	}
	return res, nil
}

// List returns one page of objects and prefixes directly below r.
func (r *Reference) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	if opts.IsZero() {
		return nil, &fberrors.ValidationError{Builder: "storage.ListOptions", Message: "options were not produced by ListOptionsBuilder.Build"}
	}
	return promise.Await(ctx, r.st.realm, "storage.list", func() (jsrt.Value, error) {
		o, err := serde.Materialize(r.st.realm, opts.tree)
		if err != nil {
			return nil, err
		}
		return r.st.call("list", r.value, o)
	}, r.st.decodeList)
}

// ListAll returns every object and prefix directly below r.
func (r *Reference) ListAll(ctx context.Context) (*ListResult, error) {
	return promise.Await(ctx, r.st.realm, "storage.listAll", func() (jsrt.Value, error) {
		return r.st.call("listAll", r.value)
	}, r.st.decodeList)
}
