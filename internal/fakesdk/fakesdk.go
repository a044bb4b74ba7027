// Package fakesdk provides in-memory JavaScript stand-ins for the Firebase
// modular SDK, loaded into a goja runtime in place of the real bundles.
//
// The fakes settle every promise on a later macrotask, reject with
// FirebaseError{code, message} like the SDK does, and keep their state in a
// shared "firebase/_fake" module so tests can inject failures and inspect
// calls.
package fakesdk

import (
	"context"
	"embed"
	"fmt"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

//go:embed js/*.js
var scripts embed.FS

// ControlModule is the specifier of the shared fake state.
const ControlModule = "firebase/_fake"

var files = []struct {
	specifier string
	file      string
}{
	{ControlModule, "js/fake.js"},
	{"firebase/app", "js/app.js"},
	{"firebase/auth", "js/auth.js"},
	{"firebase/firestore", "js/firestore.js"},
	{"firebase/storage", "js/storage.js"},
}

// Sources returns the fake modules as runtime module sources.
func Sources() []gojart.ModuleSource {
	out := make([]gojart.ModuleSource, 0, len(files))
	for _, f := range files {
		data, err := scripts.ReadFile(f.file)
		if err != nil {
			panic(fmt.Sprintf("fakesdk: missing embedded %s: %v", f.file, err))
		}
		out = append(out, &gojart.MemoryModuleSource{Module: f.specifier, Data: data})
	}
	return out
}

// NewRuntime starts a goja runtime with the fake SDK registered.
func NewRuntime(ctx context.Context, logger *zap.Logger) (*gojart.Runtime, error) {
	config := gojart.DefaultConfig()
	config.Modules = Sources()
	return gojart.New(ctx, logger, config)
}

func control(realm jsrt.Realm) (jsrt.Value, error) {
	return realm.Require(ControlModule)
}

// FailNext makes the next call of the named SDK function reject with code.
func FailNext(ctx context.Context, realm jsrt.Realm, op, code, message string) error {
	return realm.Run(ctx, func() error {
		c, err := control(realm)
		if err != nil {
			return err
		}
		_, err = c.Call("failNext", realm.ValueOf(op), realm.ValueOf(code), realm.ValueOf(message))
		return err
	})
}

// Reset clears all fake state.
func Reset(ctx context.Context, realm jsrt.Realm) error {
	return realm.Run(ctx, func() error {
		c, err := control(realm)
		if err != nil {
			return err
		}
		_, err = c.Call("reset")
		return err
	})
}

// Calls lists the SDK functions invoked so far, in order.
func Calls(ctx context.Context, realm jsrt.Realm) ([]string, error) {
	var calls []string
	err := realm.Run(ctx, func() error {
		c, err := control(realm)
		if err != nil {
			return err
		}
		list := c.Get("state").Get("calls")
		for i := 0; i < list.Len(); i++ {
			calls = append(calls, list.Index(i).String())
		}
		return nil
	})
	return calls, err
}

// Listeners counts the document and auth listeners still registered.
func Listeners(ctx context.Context, realm jsrt.Realm) (int, error) {
	var n int
	err := realm.Run(ctx, func() error {
		c, err := control(realm)
		if err != nil {
			return err
		}
		v, err := c.Call("listenerCount")
		if err != nil {
			return err
		}
		n = int(v.Float())
		return nil
	})
	return n, err
}
