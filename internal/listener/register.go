package listener

import (
	"context"
	"sync"

	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Register runs register on the JS thread and returns the undo func it
// produced. register must return an undo that removes the JS listener and
// frees its callbacks; undo runs on the JS thread.
//
// Realm.Run can give up on ctx while the loop still runs register later.
// Register is skipped once ctx has ended, and a registration that happened
// after the caller stopped waiting is undone before the error is returned.
func Register(ctx context.Context, realm jsrt.Realm, register func() (undo func(), err error)) (func(), error) {
	var (
		mu        sync.Mutex
		abandoned bool
		undo      func()
	)
	err := realm.Run(ctx, func() error {
		mu.Lock()
		defer mu.Unlock()
		if err := ctx.Err(); err != nil {
			return err
		}
		if abandoned {
			return jsrt.ErrClosed
		}
		u, err := register()
		if err != nil {
			return err
		}
		undo = u
		return nil
	})
	if err == nil {
		return undo, nil
	}

	mu.Lock()
	abandoned = true
	late := undo
	mu.Unlock()
	if late != nil {
		realm.Run(context.Background(), func() error {
			late()
			return nil
		})
	}
	return nil, err
}
