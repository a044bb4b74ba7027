package firestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/woxQAQ/firebase-wasm/internal/fakesdk"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

type city struct {
	Name       string    `js:"name,required"`
	State      string    `js:"state,omitempty"`
	Population int64     `js:"population"`
	Tags       []string  `js:"tags,omitempty"`
	Founded    time.Time `js:"founded,omitempty"`
}

func newTestFirestore(t *testing.T) (*Firestore, *gojart.Runtime) {
	t.Helper()
	rt := fakesdk.NewTestRuntime(t)
	ctx := context.Background()

	opts, err := firebase.NewOptionsBuilder().APIKey("k").ProjectID("p").Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	app, err := firebase.InitializeApp(ctx, rt, opts)
	if err != nil {
		t.Fatalf("InitializeApp failed: %v", err)
	}
	fs, err := Get(ctx, app)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	return fs, rt
}

func mustDoc(t *testing.T, fs *Firestore, path string, segments ...string) *DocumentRef {
	t.Helper()
	ref, err := fs.Doc(context.Background(), path, segments...)
	if err != nil {
		t.Fatalf("Doc(%q) failed: %v", path, err)
	}
	return ref
}

func mustCollection(t *testing.T, fs *Firestore, path string) *CollectionRef {
	t.Helper()
	ref, err := fs.Collection(context.Background(), path)
	if err != nil {
		t.Fatalf("Collection(%q) failed: %v", path, err)
	}
	return ref
}

func TestReferences(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	doc := mustDoc(t, fs, "cities", "sf")
	if doc.ID != "sf" || doc.Path != "cities/sf" {
		t.Errorf("Unexpected doc ref %s (%s)", doc.ID, doc.Path)
	}

	landmarks, err := doc.Collection(ctx, "landmarks")
	if err != nil {
		t.Fatalf("Collection failed: %v", err)
	}
	if landmarks.Path != "cities/sf/landmarks" {
		t.Errorf("Expected cities/sf/landmarks, got %q", landmarks.Path)
	}
	parent, err := landmarks.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent failed: %v", err)
	}
	if parent == nil || parent.Path != "cities/sf" {
		t.Errorf("Expected parent cities/sf, got %+v", parent)
	}

	cities := mustCollection(t, fs, "cities")
	root, err := cities.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent failed: %v", err)
	}
	if root != nil {
		t.Errorf("Expected root collection to have no parent, got %q", root.Path)
	}
	docParent, err := doc.Parent(ctx)
	if err != nil {
		t.Fatalf("Parent failed: %v", err)
	}
	if docParent.Path != "cities" {
		t.Errorf("Expected cities, got %q", docParent.Path)
	}

	auto, err := cities.Doc(ctx, "")
	if err != nil {
		t.Fatalf("Doc auto id failed: %v", err)
	}
	if auto.ID == "" || auto.Path != "cities/"+auto.ID {
		t.Errorf("Unexpected auto id ref %s (%s)", auto.ID, auto.Path)
	}
}

func TestReferenceConstructionErrors(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	_, err := fs.Doc(ctx, "cities")
	var ce *fberrors.ConstructionError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected ConstructionError for odd doc path, got %v", err)
	}
	if ce.Op != "firestore.doc" {
		t.Errorf("Expected op firestore.doc, got %q", ce.Op)
	}

	if _, err := fs.Collection(ctx, "cities/sf"); !errors.As(err, &ce) {
		t.Errorf("Expected ConstructionError for even collection path, got %v", err)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	founded := time.Date(1776, 6, 29, 0, 0, 0, 0, time.UTC)
	want := city{Name: "San Francisco", State: "CA", Population: 860000, Tags: []string{"coastal"}, Founded: founded}
	ref := mustDoc(t, fs, "cities/sf")
	if err := ref.Set(ctx, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !snap.Exists || snap.ID != "sf" {
		t.Fatalf("Unexpected snapshot %+v", snap)
	}
	var got city
	if err := snap.DataTo(ctx, &got); err != nil {
		t.Fatalf("DataTo failed: %v", err)
	}
	if !got.Founded.Equal(founded) {
		t.Errorf("Expected founded %v, got %v", founded, got.Founded)
	}
	got.Founded = founded
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
	}

	data := snap.Data()
	if data["name"] != "San Francisco" {
		t.Errorf("Expected name in Data(), got %v", data["name"])
	}
	if _, ok := data["founded"].(time.Time); !ok {
		t.Errorf("Expected founded to decode as time.Time, got %T", data["founded"])
	}
}

func TestGetMissingDocument(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	snap, err := mustDoc(t, fs, "cities/nowhere").Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Exists || snap.Data() != nil {
		t.Errorf("Expected missing document, got %+v", snap)
	}
	var c city
	var de *fberrors.DeserializationError
	if err := snap.DataTo(ctx, &c); !errors.As(err, &de) {
		t.Errorf("Expected DeserializationError, got %v", err)
	}
}

func TestDataToMissingRequiredField(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	ref := mustDoc(t, fs, "cities/la")
	if err := ref.Set(ctx, map[string]any{"population": 3900000}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var c city
	err = snap.DataTo(ctx, &c)
	var de *fberrors.DeserializationError
	if !errors.As(err, &de) || !de.Missing || de.Path != "name" {
		t.Errorf("Expected missing name, got %v", err)
	}
}

func TestMergeUpdateAndSentinels(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	ref := mustDoc(t, fs, "cities/sf")
	if err := ref.Set(ctx, map[string]any{"name": "SF", "population": 10, "tags": []string{"a"}, "meta": map[string]any{"x": 1}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := ref.Set(ctx, map[string]any{"state": "CA"}, Merge()); err != nil {
		t.Fatalf("Set(merge) failed: %v", err)
	}
	err := ref.Update(ctx, map[string]any{
		"population": Increment(5),
		"tags":       ArrayUnion("b", "a"),
		"meta.x":     DeleteField(),
		"updatedAt":  ServerTimestamp(),
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	data := snap.Data()
	if data["state"] != "CA" || data["name"] != "SF" {
		t.Errorf("Merge lost fields: %v", data)
	}
	if data["population"] != float64(15) {
		t.Errorf("Expected population 15, got %v", data["population"])
	}
	if diff := cmp.Diff([]any{"a", "b"}, data["tags"]); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]any{}, data["meta"]); diff != "" {
		t.Errorf("Meta mismatch (-want +got):\n%s", diff)
	}
	if _, ok := data["updatedAt"].(time.Time); !ok {
		t.Errorf("Expected server timestamp to decode as time.Time, got %T", data["updatedAt"])
	}

	if err := ref.Update(ctx, map[string]any{"tags": ArrayRemove("a")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snap, _ = ref.Get(ctx)
	if diff := cmp.Diff([]any{"b"}, snap.Data()["tags"]); diff != "" {
		t.Errorf("Tags mismatch after remove (-want +got):\n%s", diff)
	}
}

func TestArrayUnionCapturesArguments(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	ref := mustDoc(t, fs, "cities/sf")
	if err := ref.Set(ctx, map[string]any{"tags": []string{}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	meta := map[string]any{"k": "v"}
	elems := []any{"a", meta}
	union := ArrayUnion(elems...)
	elems[0] = "z"
	meta["k"] = "changed"

	if err := ref.Update(ctx, map[string]any{"tags": union}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	want := []any{"a", map[string]any{"k": "v"}}
	if diff := cmp.Diff(want, snap.Data()["tags"]); diff != "" {
		t.Errorf("Tags mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldValueEncodeError(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ref := mustDoc(t, fs, "cities/sf")
	if err := ref.Set(context.Background(), map[string]any{"tags": []string{}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	err := ref.Update(context.Background(), map[string]any{"tags": ArrayRemove(make(chan int))})
	var se *fberrors.SerializationError
	if !errors.As(err, &se) {
		t.Errorf("Expected SerializationError, got %v", err)
	}
}

func TestSetOptionsValidation(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ref := mustDoc(t, fs, "cities/sf")

	err := ref.Set(context.Background(), map[string]any{"a": 1}, Merge(), MergeFields("a"))
	var ve *fberrors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError, got %v", err)
	}

	err = ref.Set(context.Background(), []string{"not", "an", "object"})
	var se *fberrors.SerializationError
	if !errors.As(err, &se) {
		t.Errorf("Expected SerializationError for non-object data, got %v", err)
	}
}

func TestUpdateMissingDocument(t *testing.T) {
	fs, _ := newTestFirestore(t)

	err := mustDoc(t, fs, "cities/nowhere").Update(context.Background(), map[string]any{"a": 1})
	if !fberrors.IsNotFound(err) {
		t.Errorf("Expected not-found, got %v", err)
	}
}

func TestAddAndDelete(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	ref, err := mustCollection(t, fs, "cities").Add(ctx, city{Name: "Oakland", Population: 430000})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if ref.ID == "" || ref.Path != "cities/"+ref.ID {
		t.Errorf("Unexpected added ref %s (%s)", ref.ID, ref.Path)
	}
	if err := ref.Delete(ctx); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Exists {
		t.Error("Expected document to be gone after Delete")
	}
}

func TestPermissionDenied(t *testing.T) {
	fs, rt := newTestFirestore(t)
	ctx := context.Background()

	if err := fakesdk.FailNext(ctx, rt, "getDoc", "permission-denied", "Missing or insufficient permissions."); err != nil {
		t.Fatalf("FailNext failed: %v", err)
	}
	_, err := mustDoc(t, fs, "cities/sf").Get(ctx)
	if !fberrors.IsPermissionDenied(err) {
		t.Errorf("Expected permission denied, got %v", err)
	}
}

func seedCities(t *testing.T, fs *Firestore) *CollectionRef {
	t.Helper()
	ctx := context.Background()
	cities := []city{
		{Name: "SF", State: "CA", Population: 860000, Tags: []string{"coastal"}},
		{Name: "LA", State: "CA", Population: 3900000, Tags: []string{"coastal", "big"}},
		{Name: "DC", Population: 680000},
		{Name: "Tokyo", Population: 9000000, Tags: []string{"big"}},
		{Name: "Beijing", Population: 21500000, Tags: []string{"big"}},
	}
	for _, c := range cities {
		if err := mustDoc(t, fs, "cities", c.Name).Set(ctx, c); err != nil {
			t.Fatalf("Set(%s) failed: %v", c.Name, err)
		}
	}
	// Nested documents are not part of the collection.
	if err := mustDoc(t, fs, "cities/SF/landmarks/bridge").Set(ctx, city{Name: "Golden Gate"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	return mustCollection(t, fs, "cities")
}

func ids(qs *QuerySnapshot) []string {
	out := make([]string, 0, len(qs.Docs))
	for _, d := range qs.Docs {
		out = append(out, d.ID)
	}
	return out
}

func TestDocuments(t *testing.T) {
	fs, _ := newTestFirestore(t)
	cities := seedCities(t, fs)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"all", cities.Query(), []string{"Beijing", "DC", "LA", "SF", "Tokyo"}},
		{"equal", cities.Query().Where("state", Equal, "CA"), []string{"LA", "SF"}},
		{"ordered", cities.Query().OrderBy("population", Desc).Limit(2), []string{"Beijing", "Tokyo"}},
		{"range", cities.Query().Where("population", GreaterThan, 1000000).OrderBy("population", Asc), []string{"LA", "Tokyo", "Beijing"}},
		{"in", cities.Query().Where("name", In, []string{"DC", "SF"}), []string{"DC", "SF"}},
		{"array contains", cities.Query().Where("tags", ArrayContains, "coastal"), []string{"LA", "SF"}},
		{"limit to last", cities.Query().OrderBy("population", Asc).LimitToLast(2), []string{"Tokyo", "Beijing"}},
		{"start after", cities.Query().OrderBy("population", Asc).StartAfter(860000), []string{"LA", "Tokyo", "Beijing"}},
		{"end before", cities.Query().OrderBy("population", Asc).EndBefore(860000), []string{"DC"}},
		{"start at end at", cities.Query().OrderBy("population", Asc).StartAt(860000).EndAt(3900000), []string{"SF", "LA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := tt.query.Build()
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}
			qs, err := Documents(context.Background(), spec)
			if err != nil {
				t.Fatalf("Documents failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(qs)); diff != "" {
				t.Errorf("Result mismatch (-want +got):\n%s", diff)
			}
			if qs.Size != len(tt.want) || qs.Empty != (len(tt.want) == 0) {
				t.Errorf("Unexpected size %d / empty %v", qs.Size, qs.Empty)
			}
		})
	}
}

func TestQueryBuildValidation(t *testing.T) {
	fs, _ := newTestFirestore(t)
	cities := mustCollection(t, fs, "cities")

	tests := []struct {
		name  string
		query Query
		field string
	}{
		{"no collection", Query{}, ""},
		{"bad operator", cities.Query().Where("a", Op("~"), 1), "where"},
		{"empty field", cities.Query().Where("", Equal, 1), "where"},
		{"in needs slice", cities.Query().Where("a", In, 1), "where"},
		{"in too long", cities.Query().Where("a", In, make([]int, MaxDisjunction+1)), "where"},
		{"in empty", cities.Query().Where("a", NotIn, []int{}), "where"},
		{"bad direction", cities.Query().OrderBy("a", Direction("up")), "orderBy"},
		{"zero limit", cities.Query().Limit(0), "limit"},
		{"limit and limitToLast", cities.Query().OrderBy("a", Asc).Limit(1).LimitToLast(1), "limitToLast"},
		{"limitToLast without order", cities.Query().LimitToLast(1), "limitToLast"},
		{"cursor without order", cities.Query().StartAt(1), "startAt"},
		{"cursor too long", cities.Query().OrderBy("a", Asc).EndAt(1, 2), "endAt"},
		{"empty cursor", cities.Query().OrderBy("a", Asc).StartAfter(), "startAfter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.query.Build()
			var ve *fberrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestQueryIsValue(t *testing.T) {
	fs, _ := newTestFirestore(t)
	cities := seedCities(t, fs)

	base := cities.Query().Where("state", Equal, "CA")
	_ = base.OrderBy("population", Desc)
	limited := base.Limit(1)

	spec, err := base.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	qs, err := Documents(context.Background(), spec)
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if qs.Size != 2 {
		t.Errorf("Derived queries changed the base query: got %d docs", qs.Size)
	}

	spec, _ = limited.Build()
	qs, err = Documents(context.Background(), spec)
	if err != nil {
		t.Fatalf("Documents failed: %v", err)
	}
	if qs.Size != 1 {
		t.Errorf("Expected 1 doc, got %d", qs.Size)
	}
}

func TestWriteBatch(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	sf := mustDoc(t, fs, "cities/SF")
	la := mustDoc(t, fs, "cities/LA")
	if err := sf.Set(ctx, city{Name: "SF", Population: 1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	batch := fs.Batch().
		Set(la, city{Name: "LA", Population: 2}).
		Update(sf, map[string]any{"population": Increment(1)})
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	var ve *fberrors.ValidationError
	if err := batch.Commit(ctx); !errors.As(err, &ve) {
		t.Errorf("Expected ValidationError on second commit, got %v", err)
	} else if ve.Builder != "firestore.WriteBatch" || ve.Message != "batch already committed" {
		t.Errorf("Unexpected second commit error: %+v", ve)
	}

	snap, _ := sf.Get(ctx)
	if snap.Data()["population"] != float64(2) {
		t.Errorf("Expected SF population 2, got %v", snap.Data()["population"])
	}
	snap, _ = la.Get(ctx)
	if !snap.Exists {
		t.Error("Expected LA to exist after commit")
	}
}

func TestWriteBatchIsAtomic(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()

	sf := mustDoc(t, fs, "cities/SF")
	missing := mustDoc(t, fs, "cities/nowhere")

	err := fs.Batch().
		Set(sf, city{Name: "SF"}).
		Update(missing, map[string]any{"a": 1}).
		Commit(ctx)
	if !fberrors.IsNotFound(err) {
		t.Fatalf("Expected not-found, got %v", err)
	}
	snap, _ := sf.Get(ctx)
	if snap.Exists {
		t.Error("Expected no writes from a failed batch")
	}

	err = fs.Batch().Set(sf, 42).Commit(ctx)
	var se *fberrors.SerializationError
	if !errors.As(err, &se) {
		t.Errorf("Expected SerializationError from Set, got %v", err)
	}
}

func TestOnSnapshot(t *testing.T) {
	fs, _ := newTestFirestore(t)
	ctx := context.Background()
	ref := mustDoc(t, fs, "cities/sf")

	type event struct {
		exists bool
		name   any
	}
	events := make(chan event, 8)
	unsubscribe, err := ref.OnSnapshot(ctx, func(s *DocumentSnapshot, err error) {
		if err != nil {
			t.Errorf("Unexpected listener error: %v", err)
			return
		}
		events <- event{exists: s.Exists, name: s.Data()["name"]}
	})
	if err != nil {
		t.Fatalf("OnSnapshot failed: %v", err)
	}

	next := func() event {
		t.Helper()
		select {
		case ev := <-events:
			return ev
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for snapshot")
			return event{}
		}
	}

	if ev := next(); ev.exists {
		t.Errorf("Expected initial missing snapshot, got %+v", ev)
	}
	if err := ref.Set(ctx, city{Name: "SF"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if ev := next(); !ev.exists || ev.name != "SF" {
		t.Errorf("Expected SF snapshot, got %+v", ev)
	}

	unsubscribe()
	unsubscribe()
	if err := ref.Set(ctx, city{Name: "San Francisco"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	select {
	case ev := <-events:
		t.Errorf("Unexpected event after unsubscribe: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOnSnapshotError(t *testing.T) {
	fs, rt := newTestFirestore(t)
	ctx := context.Background()

	if err := fakesdk.FailNext(ctx, rt, "onSnapshot", "permission-denied", "denied"); err != nil {
		t.Fatalf("FailNext failed: %v", err)
	}
	errs := make(chan error, 1)
	unsubscribe, err := mustDoc(t, fs, "cities/sf").OnSnapshot(ctx, func(s *DocumentSnapshot, err error) {
		if s != nil {
			t.Errorf("Expected nil snapshot with error, got %+v", s)
		}
		errs <- err
	})
	if err != nil {
		t.Fatalf("OnSnapshot failed: %v", err)
	}
	defer unsubscribe()

	select {
	case err := <-errs:
		if !fberrors.IsPermissionDenied(err) {
			t.Errorf("Expected permission denied, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for listener error")
	}
}

func TestOnSnapshotContextEndsBeforeRegistration(t *testing.T) {
	fs, rt := newTestFirestore(t)
	ref := mustDoc(t, fs, "cities/sf")

	release := fakesdk.BlockLoop(t, rt)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	events := make(chan *DocumentSnapshot, 4)
	unsubscribe, err := ref.OnSnapshot(ctx, func(s *DocumentSnapshot, err error) {
		events <- s
	})
	if !fberrors.IsAbandoned(err) {
		t.Fatalf("Expected AbandonedError, got %T: %v", err, err)
	}
	if unsubscribe != nil {
		t.Error("Expected nil Unsubscribe on failure")
	}
	release()

	n, err := fakesdk.Listeners(context.Background(), rt)
	if err != nil {
		t.Fatalf("Listeners failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected no registered listeners, got %d", n)
	}
	select {
	case s := <-events:
		t.Errorf("Unexpected event from abandoned listener: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

