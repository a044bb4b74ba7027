package storage

import (
	"fmt"
	"mime"
	"time"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

type metadataWire struct {
	CacheControl       string             `js:"cacheControl,omitempty"`
	ContentDisposition string             `js:"contentDisposition,omitempty"`
	ContentEncoding    string             `js:"contentEncoding,omitempty"`
	ContentLanguage    string             `js:"contentLanguage,omitempty"`
	ContentType        string             `js:"contentType,omitempty"`
	CustomMetadata     map[string]*string `js:"customMetadata,omitempty"`
}

// Metadata is the settable part of an object's metadata. Build one with
// MetadataBuilder.
type Metadata struct {
	wire metadataWire
	tree any
}

func (m Metadata) ContentType() string { return m.wire.ContentType }

// IsZero reports whether m was not produced by Build.
func (m Metadata) IsZero() bool {
	return m.tree == nil
}

// MarshalJS writes the metadata into a fresh JS object.
func (m Metadata) MarshalJS(r jsrt.Realm) (jsrt.Value, error) {
	return serde.Materialize(r, m.tree)
}

// MetadataBuilder assembles Metadata. Unset fields are left unchanged by
// UpdateMetadata.
type MetadataBuilder struct {
	wire metadataWire
}

func NewMetadataBuilder() MetadataBuilder {
	return MetadataBuilder{}
}

func (b MetadataBuilder) CacheControl(v string) MetadataBuilder {
	b.wire.CacheControl = v
	return b
}

func (b MetadataBuilder) ContentDisposition(v string) MetadataBuilder {
	b.wire.ContentDisposition = v
	return b
}

func (b MetadataBuilder) ContentEncoding(v string) MetadataBuilder {
	b.wire.ContentEncoding = v
	return b
}

func (b MetadataBuilder) ContentLanguage(v string) MetadataBuilder {
	b.wire.ContentLanguage = v
	return b
}

func (b MetadataBuilder) ContentType(v string) MetadataBuilder {
	b.wire.ContentType = v
	return b
}

// Custom sets a custom metadata entry.
func (b MetadataBuilder) Custom(key, value string) MetadataBuilder {
	return b.custom(key, &value)
}

// RemoveCustom deletes a custom metadata entry in UpdateMetadata.
func (b MetadataBuilder) RemoveCustom(key string) MetadataBuilder {
	return b.custom(key, nil)
}

func (b MetadataBuilder) custom(key string, value *string) MetadataBuilder {
	m := make(map[string]*string, len(b.wire.CustomMetadata)+1)
	for k, v := range b.wire.CustomMetadata {
		m[k] = v
	}
	m[key] = value
	b.wire.CustomMetadata = m
	return b
}

// Build validates the metadata and serializes it once.
func (b MetadataBuilder) Build() (Metadata, error) {
	if ct := b.wire.ContentType; ct != "" {
		if _, _, err := mime.ParseMediaType(ct); err != nil {
			return Metadata{}, &fberrors.ValidationError{Builder: "storage.MetadataBuilder", Field: "contentType", Message: fmt.Sprintf("invalid media type %q", ct)}
		}
	}
	for k := range b.wire.CustomMetadata {
		if k == "" {
			return Metadata{}, &fberrors.ValidationError{Builder: "storage.MetadataBuilder", Field: "customMetadata", Message: "key is empty"}
		}
	}
	tree, err := serde.Encode(b.wire)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{wire: b.wire, tree: tree}, nil
}

// FullMetadata is the metadata the server reports for an object.
type FullMetadata struct {
	Bucket             string            `js:"bucket,required"`
	FullPath           string            `js:"fullPath,required"`
	Name               string            `js:"name"`
	Size               int64             `js:"size"`
	TimeCreated        time.Time         `js:"timeCreated"`
	Updated            time.Time         `js:"updated"`
	Generation         string            `js:"generation"`
	Metageneration     string            `js:"metageneration"`
	MD5Hash            string            `js:"md5Hash"`
	CacheControl       string            `js:"cacheControl"`
	ContentDisposition string            `js:"contentDisposition"`
	ContentEncoding    string            `js:"contentEncoding"`
	ContentLanguage    string            `js:"contentLanguage"`
	ContentType        string            `js:"contentType"`
	CustomMetadata     map[string]string `js:"customMetadata"`
}

func decodeFullMetadata(v jsrt.Value) (*FullMetadata, error) {
	md := &FullMetadata{}
	if err := serde.Unmarshal(v, md); err != nil {
		return nil, err
	}
	return md, nil
}

type listOptionsWire struct {
	MaxResults int    `js:"maxResults,omitempty"`
	PageToken  string `js:"pageToken,omitempty"`
}

// ListOptions pages a List call. Build one with ListOptionsBuilder.
type ListOptions struct {
	wire listOptionsWire
	tree any
}

func (o ListOptions) IsZero() bool { return o.tree == nil }

// ListOptionsBuilder assembles ListOptions.
type ListOptionsBuilder struct {
	wire listOptionsWire
}

func NewListOptionsBuilder() ListOptionsBuilder {
	return ListOptionsBuilder{}
}

// MaxResults must be between 1 and 1000.
func (b ListOptionsBuilder) MaxResults(n int) ListOptionsBuilder {
	b.wire.MaxResults = n
	return b
}

// PageToken continues from a previous ListResult.NextPageToken.
func (b ListOptionsBuilder) PageToken(token string) ListOptionsBuilder {
	b.wire.PageToken = token
	return b
}

func (b ListOptionsBuilder) Build() (ListOptions, error) {
	if n := b.wire.MaxResults; n != 0 && (n < 1 || n > 1000) {
		return ListOptions{}, &fberrors.ValidationError{Builder: "storage.ListOptionsBuilder", Field: "maxResults", Message: fmt.Sprintf("must be between 1 and 1000, got %d", n)}
	}
	tree, err := serde.Encode(b.wire)
	if err != nil {
		return ListOptions{}, err
	}
	return ListOptions{wire: b.wire, tree: tree}, nil
}
