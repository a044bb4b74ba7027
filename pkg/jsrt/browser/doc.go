// Package browser implements jsrt.Realm over syscall/js for GOOS=js
// GOARCH=wasm builds running next to the Firebase SDK in a page or worker.
//
// The Go wasm runtime shares the page's single thread, so Run executes fn
// inline. A goroutine blocked on an SDK promise yields to the JS event loop.
// The one thing that cannot work is waiting on a promise from inside a
// js.Func callback: the callback holds the thread the promise needs.
package browser
