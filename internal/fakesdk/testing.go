package fakesdk

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

// NewTestRuntime returns a fake-backed runtime closed at the end of the test.
func NewTestRuntime(t testing.TB) *gojart.Runtime {
	t.Helper()
	rt, err := NewRuntime(context.Background(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create fake SDK runtime: %v", err)
	}
	t.Cleanup(func() { rt.Close(context.Background()) })
	return rt
}

// BlockLoop occupies the JS thread until the returned func is called or the
// test ends.
func BlockLoop(t testing.TB, realm jsrt.Realm) (release func()) {
	t.Helper()
	started := make(chan struct{})
	done := make(chan struct{})
	go realm.Run(context.Background(), func() error {
		close(started)
		<-done
		return nil
	})
	<-started
	var once sync.Once
	release = func() { once.Do(func() { close(done) }) }
	t.Cleanup(release)
	return release
}

