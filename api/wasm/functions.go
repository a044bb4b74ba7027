package wasm

import (
	"context"
	"fmt"
	"sync"

	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/auth"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/firestore"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/storage"
)

// services creates the SDK handles of one app on first use.
type services struct {
	app *firebase.App

	mu sync.Mutex
	au *auth.Auth
	fs *firestore.Firestore
	st *storage.Storage
}

func (s *services) auth(ctx context.Context) (*auth.Auth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.au == nil {
		a, err := auth.Get(ctx, s.app)
		if err != nil {
			return nil, err
		}
		s.au = a
	}
	return s.au, nil
}

func (s *services) firestore(ctx context.Context) (*firestore.Firestore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fs == nil {
		fs, err := firestore.Get(ctx, s.app)
		if err != nil {
			return nil, err
		}
		s.fs = fs
	}
	return s.fs, nil
}

func (s *services) storage(ctx context.Context) (*storage.Storage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st == nil {
		st, err := storage.Get(ctx, s.app)
		if err != nil {
			return nil, err
		}
		s.st = st
	}
	return s.st, nil
}

// RegisterFirebase registers the app functions:
//
//	signIn(email, password)                  -> {uid, email, isAnonymous}
//	signOut()
//	getDocument(path)                        -> {id, path, exists, data?}
//	setDocument(path, data, {merge}?)
//	uploadBytes(path, bytes, contentType?)   -> {fullPath, size, contentType}
//	downloadURL(path)                        -> url
func RegisterFirebase(api *API, app *firebase.App) {
	s := &services{app: app}
	api.Register("signIn", s.signIn)
	api.Register("signOut", s.signOut)
	api.Register("getDocument", s.getDocument)
	api.Register("setDocument", s.setDocument)
	api.Register("uploadBytes", s.uploadBytes)
	api.Register("downloadURL", s.downloadURL)
}

func stringArg(fn string, args []any, i int) (string, error) {
	if i >= len(args) {
		return "", &ArgumentError{Func: fn, Index: i, Message: "missing"}
	}
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", &ArgumentError{Func: fn, Index: i, Message: fmt.Sprintf("expected a non-empty string, got %T", args[i])}
	}
	return s, nil
}

type userInfo struct {
	UID         string `js:"uid"`
	Email       string `js:"email,omitempty"`
	IsAnonymous bool   `js:"isAnonymous"`
}

func (s *services) signIn(ctx context.Context, args []any) (any, error) {
	email, err := stringArg("signIn", args, 0)
	if err != nil {
		return nil, err
	}
	password, err := stringArg("signIn", args, 1)
	if err != nil {
		return nil, err
	}
	a, err := s.auth(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := a.SignInWithEmailAndPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return &userInfo{UID: cred.User.UID, Email: cred.User.Email, IsAnonymous: cred.User.IsAnonymous}, nil
}

func (s *services) signOut(ctx context.Context, _ []any) (any, error) {
	a, err := s.auth(ctx)
	if err != nil {
		return nil, err
	}
	return nil, a.SignOut(ctx)
}

type document struct {
	ID     string         `js:"id"`
	Path   string         `js:"path"`
	Exists bool           `js:"exists"`
	Data   map[string]any `js:"data,omitempty"`
}

func (s *services) doc(ctx context.Context, fn string, args []any) (*firestore.DocumentRef, error) {
	path, err := stringArg(fn, args, 0)
	if err != nil {
		return nil, err
	}
	fs, err := s.firestore(ctx)
	if err != nil {
		return nil, err
	}
	return fs.Doc(ctx, path)
}

func (s *services) getDocument(ctx context.Context, args []any) (any, error) {
	ref, err := s.doc(ctx, "getDocument", args)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &document{ID: snap.ID, Path: snap.Path, Exists: snap.Exists, Data: snap.Data()}, nil
}

func (s *services) setDocument(ctx context.Context, args []any) (any, error) {
	if len(args) < 2 {
		return nil, &ArgumentError{Func: "setDocument", Index: 1, Message: "missing"}
	}
	data, ok := args[1].(map[string]any)
	if !ok {
		return nil, &ArgumentError{Func: "setDocument", Index: 1, Message: fmt.Sprintf("expected an object, got %T", args[1])}
	}
	var opts []firestore.SetOption
	if len(args) > 2 {
		if o, ok := args[2].(map[string]any); ok && o["merge"] == true {
			opts = append(opts, firestore.Merge())
		}
	}
	ref, err := s.doc(ctx, "setDocument", args)
	if err != nil {
		return nil, err
	}
	return nil, ref.Set(ctx, data, opts...)
}

type uploadInfo struct {
	FullPath    string `js:"fullPath"`
	Size        int64  `js:"size"`
	ContentType string `js:"contentType,omitempty"`
}

func (s *services) uploadBytes(ctx context.Context, args []any) (any, error) {
	path, err := stringArg("uploadBytes", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, &ArgumentError{Func: "uploadBytes", Index: 1, Message: "missing"}
	}
	data, ok := args[1].([]byte)
	if !ok {
		return nil, &ArgumentError{Func: "uploadBytes", Index: 1, Message: fmt.Sprintf("expected a Uint8Array, got %T", args[1])}
	}

	var md *storage.Metadata
	if len(args) > 2 && args[2] != nil {
		ct, err := stringArg("uploadBytes", args, 2)
		if err != nil {
			return nil, err
		}
		m, err := storage.NewMetadataBuilder().ContentType(ct).Build()
		if err != nil {
			return nil, err
		}
		md = &m
	}

	st, err := s.storage(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := st.Ref(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := ref.UploadBytes(ctx, data, md)
	if err != nil {
		return nil, err
	}
	return &uploadInfo{FullPath: res.Metadata.FullPath, Size: res.Metadata.Size, ContentType: res.Metadata.ContentType}, nil
}

func (s *services) downloadURL(ctx context.Context, args []any) (any, error) {
	path, err := stringArg("downloadURL", args, 0)
	if err != nil {
		return nil, err
	}
	st, err := s.storage(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := st.Ref(ctx, path)
	if err != nil {
		return nil, err
	}
	return ref.DownloadURL(ctx)
}
