package wasm

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/firebase-wasm/internal/fakesdk"
	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/auth"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

func newTestAPI(t *testing.T) (*gojart.Runtime, *firebase.App) {
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

	api := NewAPI(ctx, rt, zaptest.NewLogger(t))
	RegisterFirebase(api, app)
	if err := api.ExportTo(ctx, DefaultNamespace); err != nil {
		t.Fatalf("ExportTo failed: %v", err)
	}
	t.Cleanup(api.Release)
	return rt, app
}

// call invokes globalThis.goFirebase[name] and returns the settled envelope.
func call(t *testing.T, rt *gojart.Runtime, name string, args func() []jsrt.Value) map[string]any {
	t.Helper()
	env, err := promise.Await(context.Background(), rt, "test."+name, func() (jsrt.Value, error) {
		var in []jsrt.Value
		if args != nil {
			in = args()
		}
		return rt.Global().Get(DefaultNamespace).Call(name, in...)
	}, func(v jsrt.Value) (map[string]any, error) {
		tree, err := serde.ToTree(v)
		if err != nil {
			return nil, err
		}
		m, _ := tree.(map[string]any)
		return m, nil
	})
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return env
}

func strs(rt *gojart.Runtime, values ...string) func() []jsrt.Value {
	return func() []jsrt.Value {
		out := make([]jsrt.Value, len(values))
		for i, v := range values {
			out[i] = rt.ValueOf(v)
		}
		return out
	}
}

func errorOf(env map[string]any) map[string]any {
	e, _ := env["error"].(map[string]any)
	return e
}

func TestExportedNames(t *testing.T) {
	rt := fakesdk.NewTestRuntime(t)
	api := NewAPI(context.Background(), rt, zaptest.NewLogger(t))
	RegisterFirebase(api, nil)

	want := []string{"downloadURL", "getDocument", "setDocument", "signIn", "signOut", "uploadBytes"}
	if diff := cmp.Diff(want, api.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestSignIn(t *testing.T) {
	rt, app := newTestAPI(t)
	ctx := context.Background()

	env := call(t, rt, "signIn", strs(rt, "ada@example.com", "secret123"))
	if e := errorOf(env); e == nil || e["code"] != "auth/user-not-found" || e["kind"] != "not-found" {
		t.Errorf("Expected user-not-found error, got %v", env)
	}

	a, err := auth.Get(ctx, app)
	if err != nil {
		t.Fatalf("auth.Get failed: %v", err)
	}
	if _, err := a.CreateUserWithEmailAndPassword(ctx, "ada@example.com", "secret123"); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	env = call(t, rt, "signIn", strs(rt, "ada@example.com", "secret123"))
	data, _ := env["data"].(map[string]any)
	if data["email"] != "ada@example.com" || data["uid"] == "" {
		t.Errorf("Expected signed-in user, got %v", env)
	}

	env = call(t, rt, "signOut", nil)
	if _, has := env["error"]; has {
		t.Errorf("Expected signOut to succeed, got %v", env)
	}
	if u, err := a.CurrentUser(ctx); err != nil || u != nil {
		t.Errorf("Expected no current user, got %v (%v)", u, err)
	}
}

func TestDocuments(t *testing.T) {
	rt, _ := newTestAPI(t)

	env := call(t, rt, "setDocument", func() []jsrt.Value {
		data := rt.NewObject()
		data.Set("name", rt.ValueOf("Ada"))
		data.Set("age", rt.ValueOf(36))
		return []jsrt.Value{rt.ValueOf("users/ada"), data}
	})
	if e := errorOf(env); e != nil {
		t.Fatalf("setDocument failed: %v", e)
	}

	env = call(t, rt, "getDocument", strs(rt, "users/ada"))
	doc, _ := env["data"].(map[string]any)
	want := map[string]any{
		"id":     "ada",
		"path":   "users/ada",
		"exists": true,
		"data":   map[string]any{"name": "Ada", "age": float64(36)},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	env = call(t, rt, "getDocument", strs(rt, "users/none"))
	doc, _ = env["data"].(map[string]any)
	if doc["exists"] != false {
		t.Errorf("Expected missing document, got %v", doc)
	}
}

func TestUploadAndDownloadURL(t *testing.T) {
	rt, _ := newTestAPI(t)

	env := call(t, rt, "uploadBytes", func() []jsrt.Value {
		return []jsrt.Value{rt.ValueOf("notes/a.txt"), rt.ValueOf([]byte("hello")), rt.ValueOf("text/plain")}
	})
	info, _ := env["data"].(map[string]any)
	want := map[string]any{"fullPath": "notes/a.txt", "size": float64(5), "contentType": "text/plain"}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("upload mismatch (-want +got):\n%s", diff)
	}

	env = call(t, rt, "downloadURL", strs(rt, "notes/a.txt"))
	if url, _ := env["data"].(string); url == "" {
		t.Errorf("Expected a download URL, got %v", env)
	}
}

func TestArgumentErrors(t *testing.T) {
	rt, _ := newTestAPI(t)

	tests := []struct {
		name string
		fn   string
		args func() []jsrt.Value
	}{
		{"missing path", "getDocument", nil},
		{"non-string path", "getDocument", func() []jsrt.Value { return []jsrt.Value{rt.ValueOf(1)} }},
		{"missing data", "setDocument", strs(rt, "users/ada")},
		{"string as bytes", "uploadBytes", strs(rt, "a.txt", "hello")},
		{"bad content type", "uploadBytes", func() []jsrt.Value {
			return []jsrt.Value{rt.ValueOf("a.txt"), rt.ValueOf([]byte("x")), rt.ValueOf("not a type;;")}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := call(t, rt, tt.fn, tt.args)
			e := errorOf(env)
			if e == nil || e["kind"] != "invalid-argument" {
				t.Errorf("Expected invalid-argument, got %v", env)
			}
		})
	}
}

func TestBoot(t *testing.T) {
	rt := fakesdk.NewTestRuntime(t)
	ctx := context.Background()

	if _, err := Boot(ctx, rt, zaptest.NewLogger(t)); err == nil {
		t.Fatal("Expected error without globalThis.firebaseConfig")
	}

	err := rt.Eval(ctx, "config.js", `globalThis.firebaseConfig = {apiKey: "k", projectId: "p", storageBucket: "gs://p"};`)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	_, err = Boot(ctx, rt, zaptest.NewLogger(t))
	var verr *fberrors.ValidationError
	if !errors.As(err, &verr) || verr.Field != "storageBucket" {
		t.Fatalf("Expected storageBucket ValidationError, got %v", err)
	}

	err = rt.Eval(ctx, "config.js", `globalThis.firebaseConfig = {apiKey: "k", projectId: "p", storageBucket: "p.appspot.com"};`)
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	api, err := Boot(ctx, rt, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Boot failed: %v", err)
	}
	defer api.Release()

	env := call(t, rt, "downloadURL", strs(rt, "missing.txt"))
	if e := errorOf(env); e == nil || e["code"] != "storage/object-not-found" {
		t.Errorf("Expected object-not-found, got %v", env)
	}
}
