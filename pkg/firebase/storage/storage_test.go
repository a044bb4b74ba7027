package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/woxQAQ/firebase-wasm/internal/fakesdk"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

func newTestStorage(t *testing.T) (*Storage, *gojart.Runtime) {
	t.Helper()
	rt := fakesdk.NewTestRuntime(t)
	ctx := context.Background()

	opts, err := firebase.NewOptionsBuilder().APIKey("k").ProjectID("p").StorageBucket("p.appspot.com").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	app, err := firebase.InitializeApp(ctx, rt, opts)
	if err != nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}
	s, err := Get(ctx, app)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return s, rt
}

func mustRef(t *testing.T, s *Storage, path string) *Reference {
	t.Helper()
	ref, err := s.Ref(context.Background(), path)
	if err != nil {
		t.Fatalf("Ref(%q) failed: %v", path, err)
	}
	return ref
}

func TestReferences(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	ref := mustRef(t, s, "images/cats/tom.png")
	if ref.Bucket != "p.appspot.com" || ref.FullPath != "images/cats/tom.png" || ref.Name != "tom.png" {
		t.Errorf("Unexpected reference %+v", ref)
	}
	if ref.String() != "gs://p.appspot.com/images/cats/tom.png" {
		t.Errorf("Unexpected URL %q", ref.String())
	}

	parent, err := ref.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent failed: %v", err)
	}
	if parent.FullPath != "images/cats" {
		t.Errorf("Expected images/cats, got %q", parent.FullPath)
	}
	child, err := parent.Child(ctx, "jerry.png")
	if err != nil {
		t.Fatalf("Child failed: %v", err)
	}
	if child.FullPath != "images/cats/jerry.png" {
		t.Errorf("Expected images/cats/jerry.png, got %q", child.FullPath)
	}
	root, err := child.Root(ctx)
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	if !root.IsRoot() {
		t.Errorf("Expected root, got %q", root.FullPath)
	}
	none, err := root.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent failed: %v", err)
	}
	if none != nil {
		t.Errorf("Expected root to have no parent, got %q", none.FullPath)
	}

	other := mustRef(t, s, "gs://other-bucket/a/b")
	if other.Bucket != "other-bucket" || other.FullPath != "a/b" {
		t.Errorf("Unexpected gs:// reference %+v", other)
	}
}

func TestNoDefaultBucket(t *testing.T) {
	rt := fakesdk.NewTestRuntime(t)
	ctx := context.Background()

	opts, _ := firebase.NewOptionsBuilder().APIKey("k").ProjectID("p").Build()
	app, err := firebase.InitializeApp(ctx, rt, opts)
	if err != nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}
	s, err := Get(ctx, app)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_, err = s.Ref(ctx, "a.txt")
	var ce *fberrors.ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConstructionError, got %v", err)
	}

	explicit, err := Get(ctx, app, "gs://explicit")
	if err != nil {
		t.Fatalf("Get with bucket failed: %v", err)
	}
	ref, err := explicit.Ref(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Ref failed: %v", err)
	}
	if ref.Bucket != "explicit" {
		t.Errorf("Expected bucket explicit, got %q", ref.Bucket)
	}
}

func TestUploadDownload(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	ref := mustRef(t, s, "docs/hello.txt")

	md, err := NewMetadataBuilder().
		ContentType("text/plain; charset=utf-8").
		CacheControl("no-cache").
		Custom("owner", "ada").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	res, err := ref.UploadBytes(ctx, []byte("hello world"), &md)
	if err != nil {
		t.Fatalf("UploadBytes failed: %v", err)
	}
	if res.Ref.FullPath != "docs/hello.txt" {
		t.Errorf("Unexpected result ref %q", res.Ref.FullPath)
	}
	if res.Metadata.Size != 11 || res.Metadata.ContentType != "text/plain; charset=utf-8" {
		t.Errorf("Unexpected metadata %+v", res.Metadata)
	}
	if res.Metadata.TimeCreated.IsZero() {
		t.Error("Expected timeCreated to decode")
	}
	if diff := cmp.Diff(map[string]string{"owner": "ada"}, res.Metadata.CustomMetadata); diff != "" {
		t.Errorf("Custom metadata mismatch (-want +got):\n%s", diff)
	}

	data, err := ref.Bytes(ctx, 0)
	if err != nil {
		t.Fatalf("Bytes failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("Expected hello world, got %q", data)
	}
	head, err := ref.Bytes(ctx, 5)
	if err != nil {
		t.Fatalf("Bytes(5) failed: %v", err)
	}
	if string(head) != "hello" {
		t.Errorf("Expected hello, got %q", head)
	}

	url, err := ref.DownloadURL(ctx)
	if err != nil {
		t.Fatalf("DownloadURL failed: %v", err)
	}
	if url == "" {
		t.Error("Expected a download URL")
	}

	blob, err := ref.Blob(ctx)
	if err != nil {
		t.Fatalf("Blob failed: %v", err)
	}
	if blob.Size() != 11 || blob.Type() != "text/plain; charset=utf-8" {
		t.Errorf("Unexpected blob size %d type %q", blob.Size(), blob.Type())
	}
	contents, err := blob.Bytes(ctx)
	if err != nil {
		t.Fatalf("Blob.Bytes failed: %v", err)
	}
	if string(contents) != "hello world" {
		t.Errorf("Expected hello world, got %q", contents)
	}
}

func TestUploadBlob(t *testing.T) {
	s, rt := newTestStorage(t)
	ctx := context.Background()

	blob, err := NewBlob(ctx, rt, []byte{1, 2, 3}, "application/octet-stream")
	if err != nil {
		t.Fatalf("NewBlob failed: %v", err)
	}
	if blob.Size() != 3 {
		t.Errorf("Expected size 3, got %d", blob.Size())
	}

	res, err := mustRef(t, s, "bin/data").UploadBlob(ctx, blob, nil)
	if err != nil {
		t.Fatalf("UploadBlob failed: %v", err)
	}
	if res.Metadata.ContentType != "application/octet-stream" {
		t.Errorf("Expected blob type as content type, got %q", res.Metadata.ContentType)
	}
}

func TestUploadErrors(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	root, err := mustRef(t, s, "x").Root(ctx)
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	_, err = root.UploadBytes(ctx, []byte("x"), nil)
	if code := fberrors.CodeOf(err); code != "storage/invalid-root-operation" {
		t.Errorf("Expected storage/invalid-root-operation, got %v", err)
	}

	_, err = mustRef(t, s, "a").UploadBytes(ctx, []byte("x"), &Metadata{})
	var ve *fberrors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError for zero metadata, got %v", err)
	}
}

func TestMissingObject(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	ref := mustRef(t, s, "nope.txt")

	if _, err := ref.DownloadURL(ctx); !fberrors.IsNotFound(err) {
		t.Errorf("Expected not-found from DownloadURL, got %v", err)
	}
	if _, err := ref.Metadata(ctx); !fberrors.IsNotFound(err) {
		t.Errorf("Expected not-found from Metadata, got %v", err)
	}
	if err := ref.Delete(ctx); !fberrors.IsNotFound(err) {
		t.Errorf("Expected not-found from Delete, got %v", err)
	}
}

func TestUnauthorized(t *testing.T) {
	s, rt := newTestStorage(t)
	ctx := context.Background()

	if err := fakesdk.FailNext(ctx, rt, "uploadBytes", "storage/unauthorized", "User does not have permission"); err != nil {
		t.Fatalf("FailNext failed: %v", err)
	}
	_, err := mustRef(t, s, "a.txt").UploadBytes(ctx, []byte("x"), nil)
	if !fberrors.IsPermissionDenied(err) {
		t.Errorf("Expected permission denied, got %v", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()
	ref := mustRef(t, s, "a.txt")

	md, _ := NewMetadataBuilder().Custom("a", "1").Custom("b", "2").Build()
	if _, err := ref.UploadBytes(ctx, []byte("x"), &md); err != nil {
		t.Fatalf("UploadBytes failed: %v", err)
	}

	patch, err := NewMetadataBuilder().ContentLanguage("en").RemoveCustom("a").Custom("c", "3").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	got, err := ref.UpdateMetadata(ctx, patch)
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if got.ContentLanguage != "en" {
		t.Errorf("Expected contentLanguage en, got %q", got.ContentLanguage)
	}
	if diff := cmp.Diff(map[string]string{"b": "2", "c": "3"}, got.CustomMetadata); diff != "" {
		t.Errorf("Custom metadata mismatch (-want +got):\n%s", diff)
	}
	if got.Metageneration != "2" {
		t.Errorf("Expected metageneration 2, got %q", got.Metageneration)
	}

	if _, err := ref.UpdateMetadata(ctx, Metadata{}); err == nil {
		t.Error("Expected zero metadata to be rejected")
	}
}

func TestMetadataBuilder(t *testing.T) {
	if _, err := NewMetadataBuilder().ContentType("not a type").Build(); err == nil {
		t.Error("Expected invalid content type to be rejected")
	}
	if _, err := NewMetadataBuilder().Custom("", "v").Build(); err == nil {
		t.Error("Expected empty custom key to be rejected")
	}

	base := NewMetadataBuilder().Custom("a", "1")
	_ = base.Custom("b", "2")
	md, err := base.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(md.wire.CustomMetadata) != 1 {
		t.Errorf("Chaining mutated the base builder: %v", md.wire.CustomMetadata)
	}
}

func TestList(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	for _, p := range []string{"photos/a.jpg", "photos/b.jpg", "photos/c.jpg", "photos/2024/d.jpg", "other.txt"} {
		if _, err := mustRef(t, s, p).UploadBytes(ctx, []byte(p), nil); err != nil {
			t.Fatalf("UploadBytes(%s) failed: %v", p, err)
		}
	}
	photos := mustRef(t, s, "photos")

	all, err := photos.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	names := func(refs []*Reference) []string {
		var out []string
		for _, r := range refs {
			out = append(out, r.Name)
		}
		return out
	}
	if diff := cmp.Diff([]string{"a.jpg", "b.jpg", "c.jpg"}, names(all.Items)); diff != "" {
		t.Errorf("Items mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"2024"}, names(all.Prefixes)); diff != "" {
		t.Errorf("Prefixes mismatch (-want +got):\n%s", diff)
	}

	opts, err := NewListOptionsBuilder().MaxResults(2).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var pages [][]string
	for {
		page, err := photos.List(ctx, opts)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		pages = append(pages, append(names(page.Prefixes), names(page.Items)...))
		if page.NextPageToken == "" {
			break
		}
		opts, err = NewListOptionsBuilder().MaxResults(2).PageToken(page.NextPageToken).Build()
		if err != nil {
			t.Fatalf("Build failed: %v", err)
		}
	}
	if diff := cmp.Diff([][]string{{"2024", "a.jpg"}, {"b.jpg", "c.jpg"}}, pages); diff != "" {
		t.Errorf("Pages mismatch (-want +got):\n%s", diff)
	}
}

func TestListOptionsValidation(t *testing.T) {
	for _, n := range []int{-1, 1001} {
		_, err := NewListOptionsBuilder().MaxResults(n).Build()
		var ve *fberrors.ValidationError
		if !errors.As(err, &ve) || ve.Field != "maxResults" {
			t.Errorf("MaxResults(%d): expected maxResults ValidationError, got %v", n, err)
		}
	}

	s, _ := newTestStorage(t)
	if _, err := mustRef(t, s, "x").List(context.Background(), ListOptions{}); err == nil {
		t.Error("Expected zero ListOptions to be rejected")
	}
}
