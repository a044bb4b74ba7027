//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/api/wasm"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/browser"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	realm := browser.New(logger)

	api, err := wasm.Boot(ctx, realm, logger)
	if err != nil {
		logger.Error("Failed to boot", zap.Error(err))
		if cb := js.Global().Get("onGoFirebaseError"); cb.Type() == js.TypeFunction {
			cb.Invoke(err.Error())
		}
		return
	}
	defer api.Release()

	if cb := js.Global().Get("onGoFirebaseReady"); cb.Type() == js.TypeFunction {
		cb.Invoke()
	}
	select {}
}
