package scenario

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/firebase-wasm/pkg/firebase/firestore"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Field values written from YAML may use these markers for sentinels:
//
//	"$serverTimestamp"   serverTimestamp()
//	"$delete"            deleteField()
//	{$increment: n}      increment(n)
//	{$arrayUnion: [..]}  arrayUnion(..)
//	{$arrayRemove: [..]} arrayRemove(..)
func sentinels(v any) any {
	switch x := v.(type) {
	case string:
		switch x {
		case "$serverTimestamp":
			return firestore.ServerTimestamp()
		case "$delete":
			return firestore.DeleteField()
		}
	case map[string]any:
		if len(x) == 1 {
			for k, arg := range x {
				switch k {
				case "$increment":
					if n, ok := number(arg); ok {
						return firestore.Increment(n)
					}
				case "$arrayUnion":
					if list, ok := arg.([]any); ok {
						return firestore.ArrayUnion(list...)
					}
				case "$arrayRemove":
					if list, ok := arg.([]any); ok {
						return firestore.ArrayRemove(list...)
					}
				}
			}
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = sentinels(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = sentinels(e)
		}
		return out
	}
	return v
}

// sentinelFields applies sentinels to each field of a document.
func sentinelFields(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = sentinels(v)
	}
	return out
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// plain makes decoded document data safe to encode as YAML. JS handles
// left in the data, such as references, cannot be read off the JS thread.
func plain(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case jsrt.Value:
		return "<js value>"
	}
	return v
}

type docResult struct {
	ID     string         `yaml:"id"`
	Path   string         `yaml:"path"`
	Exists bool           `yaml:"exists"`
	Data   map[string]any `yaml:"data,omitempty"`
}

func summarizeDoc(s *firestore.DocumentSnapshot) *docResult {
	res := &docResult{ID: s.ID, Path: s.Path, Exists: s.Exists}
	if data, ok := plain(s.Data()).(map[string]any); ok && s.Exists {
		res.Data = data
	}
	return res
}

type pathArgs struct {
	Path string `yaml:"path"`
}

func (a *pathArgs) decode(op string, node *yaml.Node) error {
	if err := decodeArgs(op, node, a); err != nil {
		return err
	}
	return required(op, "path", a.Path)
}

func doc(ctx context.Context, env *Env, path string) (*firestore.DocumentRef, error) {
	fs, err := env.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	return fs.Doc(ctx, path)
}

func firestoreGet(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args pathArgs
	if err := args.decode("firestore.get", node); err != nil {
		return nil, err
	}
	ref, err := doc(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return summarizeDoc(snap), nil
}

type writeArgs struct {
	Path        string         `yaml:"path"`
	Data        map[string]any `yaml:"data"`
	Merge       bool           `yaml:"merge"`
	MergeFields []string       `yaml:"merge_fields"`
}

func (a *writeArgs) decode(op string, node *yaml.Node) error {
	if err := decodeArgs(op, node, a); err != nil {
		return err
	}
	if err := required(op, "path", a.Path); err != nil {
		return err
	}
	if a.Data == nil {
		return &ArgsError{Op: op, Field: "data", Err: fmt.Errorf("is required")}
	}
	return nil
}

func firestoreSet(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args writeArgs
	if err := args.decode("firestore.set", node); err != nil {
		return nil, err
	}
	ref, err := doc(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	var opts []firestore.SetOption
	if args.Merge {
		opts = append(opts, firestore.Merge())
	}
	if len(args.MergeFields) > 0 {
		opts = append(opts, firestore.MergeFields(args.MergeFields...))
	}
	return nil, ref.Set(ctx, sentinelFields(args.Data), opts...)
}

func firestoreUpdate(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args writeArgs
	if err := args.decode("firestore.update", node); err != nil {
		return nil, err
	}
	ref, err := doc(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	return nil, ref.Update(ctx, sentinelFields(args.Data))
}

func firestoreDelete(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args pathArgs
	if err := args.decode("firestore.delete", node); err != nil {
		return nil, err
	}
	ref, err := doc(ctx, env, args.Path)
	if err != nil {
		return nil, err
	}
	return nil, ref.Delete(ctx)
}

type addArgs struct {
	Collection string         `yaml:"collection"`
	Data       map[string]any `yaml:"data"`
}

func firestoreAdd(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args addArgs
	if err := decodeArgs("firestore.add", node, &args); err != nil {
		return nil, err
	}
	if err := required("firestore.add", "collection", args.Collection); err != nil {
		return nil, err
	}
	fs, err := env.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	coll, err := fs.Collection(ctx, args.Collection)
	if err != nil {
		return nil, err
	}
	ref, err := coll.Add(ctx, sentinelFields(args.Data))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": ref.ID, "path": ref.Path}, nil
}

type whereArgs struct {
	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

type orderArgs struct {
	Field     string `yaml:"field"`
	Direction string `yaml:"direction"`
}

type queryArgs struct {
	Collection  string      `yaml:"collection"`
	Where       []whereArgs `yaml:"where"`
	OrderBy     []orderArgs `yaml:"order_by"`
	Limit       int         `yaml:"limit"`
	LimitToLast int         `yaml:"limit_to_last"`
	StartAt     []any       `yaml:"start_at"`
	StartAfter  []any       `yaml:"start_after"`
	EndAt       []any       `yaml:"end_at"`
	EndBefore   []any       `yaml:"end_before"`
}

func (a *queryArgs) build(coll *firestore.CollectionRef) (firestore.QuerySpec, error) {
	q := coll.Query()
	for _, w := range a.Where {
		q = q.Where(w.Field, firestore.Op(w.Op), w.Value)
	}
	for _, o := range a.OrderBy {
		dir := firestore.Asc
		if o.Direction == string(firestore.Desc) {
			dir = firestore.Desc
		}
		q = q.OrderBy(o.Field, dir)
	}
	if a.Limit > 0 {
		q = q.Limit(a.Limit)
	}
	if a.LimitToLast > 0 {
		q = q.LimitToLast(a.LimitToLast)
	}
	if len(a.StartAt) > 0 {
		q = q.StartAt(a.StartAt...)
	}
	if len(a.StartAfter) > 0 {
		q = q.StartAfter(a.StartAfter...)
	}
	if len(a.EndAt) > 0 {
		q = q.EndAt(a.EndAt...)
	}
	if len(a.EndBefore) > 0 {
		q = q.EndBefore(a.EndBefore...)
	}
	return q.Build()
}

type queryResult struct {
	Size int          `yaml:"size"`
	Docs []*docResult `yaml:"docs"`
}

func firestoreQuery(ctx context.Context, env *Env, node *yaml.Node) (any, error) {
	var args queryArgs
	if err := decodeArgs("firestore.query", node, &args); err != nil {
		return nil, err
	}
	if err := required("firestore.query", "collection", args.Collection); err != nil {
		return nil, err
	}
	fs, err := env.Firestore(ctx)
	if err != nil {
		return nil, err
	}
	coll, err := fs.Collection(ctx, args.Collection)
	if err != nil {
		return nil, err
	}
	spec, err := args.build(coll)
	if err != nil {
		return nil, err
	}

	qs, err := firestore.Documents(ctx, spec)
	if err != nil {
		return nil, err
	}

	res := &queryResult{Size: qs.Size, Docs: make([]*docResult, 0, qs.Size)}
	for _, d := range qs.Docs {
		res.Docs = append(res.Docs, summarizeDoc(d))
	}
	return res, nil
}
