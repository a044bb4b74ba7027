package firestore

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

type batchOp struct {
	kind string
	ref  *DocumentRef
	tree any
	opts *setOptions
}

// WriteBatch collects writes and commits them atomically. Writes are
// encoded when added and sent to the SDK on Commit. A batch can be
// committed once.
type WriteBatch struct {
	fs *Firestore

	mu        sync.Mutex
	ops       []batchOp
	err       error
	committed bool
}

// Batch starts an empty batch.
func (fs *Firestore) Batch() *WriteBatch {
	return &WriteBatch{fs: fs}
}

func (b *WriteBatch) add(op batchOp, err error) *WriteBatch {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.err = err
	}
	if err == nil {
		b.ops = append(b.ops, op)
	}
	return b
}

// Set adds a set write. Errors are reported by Commit.
func (b *WriteBatch) Set(ref *DocumentRef, data any, opts ...SetOption) *WriteBatch {
	so, err := buildSetOptions(opts)
	if err != nil {
		return b.add(batchOp{}, err)
	}
	tree, err := encodeData(data)
	return b.add(batchOp{kind: "set", ref: ref, tree: tree, opts: so}, err)
}

// Update adds an update write. Errors are reported by Commit.
func (b *WriteBatch) Update(ref *DocumentRef, data map[string]any) *WriteBatch {
	tree, err := encodeData(data)
	return b.add(batchOp{kind: "update", ref: ref, tree: tree}, err)
}

// Delete adds a delete.
func (b *WriteBatch) Delete(ref *DocumentRef) *WriteBatch {
	return b.add(batchOp{kind: "delete", ref: ref}, nil)
}

// Commit sends all writes. Either all of them apply or none do.
func (b *WriteBatch) Commit(ctx context.Context) error {
	b.mu.Lock()
	if b.committed {
		b.mu.Unlock()
		return &fberrors.ValidationError{Builder: "firestore.WriteBatch", Message: "batch already committed"}
	}
	b.committed = true
	ops, err := b.ops, b.err
	b.mu.Unlock()
	if err != nil {
		return err
	}

	fs := b.fs
	err = promise.Void(ctx, fs.realm, "firestore.commitBatch", func() (jsrt.Value, error) {
		batch, err := fs.call("writeBatch", fs.value)
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			var args []jsrt.Value
			if op.kind == "delete" {
				args = []jsrt.Value{op.ref.value}
			} else if args, err = fs.writeArgs(op.ref.value, op.tree, op.opts); err != nil {
				return nil, err
			}
			if _, err := batch.Call(op.kind, args...); err != nil {
				return nil, err
			}
		}
		return batch.Call("commit")
	})
	if err != nil {
		return err
	}
	fs.logger.Debug("Batch committed", zap.Int("writes", len(ops)))
	return nil
}
