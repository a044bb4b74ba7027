package scenario

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/auth"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/firestore"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase/storage"
)

// OpFunc runs one step. The returned value is written to the step result
// and must be YAML encodable.
type OpFunc func(ctx context.Context, env *Env, args *yaml.Node) (any, error)

var (
	errNoVerifier  = errors.New("token verification is not configured")
	errNotSignedIn = errors.New("no user is signed in")
)

// Env holds the services steps run against. Services are created on first
// use. An Env is used by one runner at a time.
type Env struct {
	App *firebase.App

	// NewVerifier builds the verifier for auth.verifyIdToken. Nil disables
	// the op.
	NewVerifier func(ctx context.Context) (TokenVerifier, error)

	auth      *auth.Auth
	firestore *firestore.Firestore
	storage   *storage.Storage
	verifier  TokenVerifier
}

func NewEnv(app *firebase.App) *Env {
	return &Env{App: app}
}

func (e *Env) Auth(ctx context.Context) (*auth.Auth, error) {
	if e.auth == nil {
		a, err := auth.Get(ctx, e.App)
		if err != nil {
			return nil, err
		}
		e.auth = a
	}
	return e.auth, nil
}

func (e *Env) Firestore(ctx context.Context) (*firestore.Firestore, error) {
	if e.firestore == nil {
		fs, err := firestore.Get(ctx, e.App)
		if err != nil {
			return nil, err
		}
		e.firestore = fs
	}
	return e.firestore, nil
}

func (e *Env) Storage(ctx context.Context) (*storage.Storage, error) {
	if e.storage == nil {
		st, err := storage.Get(ctx, e.App)
		if err != nil {
			return nil, err
		}
		e.storage = st
	}
	return e.storage, nil
}

func (e *Env) Verifier(ctx context.Context) (TokenVerifier, error) {
	if e.verifier == nil {
		if e.NewVerifier == nil {
			return nil, errNoVerifier
		}
		v, err := e.NewVerifier(ctx)
		if err != nil {
			return nil, err
		}
		e.verifier = v
	}
	return e.verifier, nil
}

// Registry maps op names to implementations.
type Registry struct {
	sync.RWMutex
	ops    map[string]OpFunc
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		ops:    make(map[string]OpFunc),
		logger: logger.With(zap.String("component", "scenario-registry")),
	}
}

// DefaultRegistry returns a registry with the auth, firestore and storage
// ops installed.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for name, fn := range builtinOps() {
		// Names are unique within builtinOps.
		_ = r.Register(name, fn)
	}
	return r
}

// Register adds an op.
func (r *Registry) Register(name string, fn OpFunc) error {
	r.Lock()
	defer r.Unlock()

	if _, exists := r.ops[name]; exists {
		return &OpAlreadyRegisteredError{Op: name}
	}

	r.ops[name] = fn

	r.logger.Debug("Op registered", zap.String("op", name))

	return nil
}

// Get retrieves an op by name.
func (r *Registry) Get(name string) (OpFunc, bool) {
	r.RLock()
	defer r.RUnlock()

	fn, ok := r.ops[name]
	return fn, ok
}

// List returns the registered op names in sorted order.
func (r *Registry) List() []string {
	r.RLock()
	defer r.RUnlock()

	result := make([]string, 0, len(r.ops))
	for name := range r.ops {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Count returns the number of registered ops.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.ops)
}

func builtinOps() map[string]OpFunc {
	return map[string]OpFunc{
		"auth.signUp":            authSignUp,
		"auth.signIn":            authSignIn,
		"auth.signInAnonymously": authSignInAnonymously,
		"auth.signOut":           authSignOut,
		"auth.currentUser":       authCurrentUser,
		"auth.idToken":           authIDToken,
		"auth.verifyIdToken":     authVerifyIDToken,
		"firestore.get":          firestoreGet,
		"firestore.set":          firestoreSet,
		"firestore.update":       firestoreUpdate,
		"firestore.delete":       firestoreDelete,
		"firestore.add":          firestoreAdd,
		"firestore.query":        firestoreQuery,
		"storage.upload":         storageUpload,
		"storage.download":       storageDownload,
		"storage.url":            storageURL,
		"storage.delete":         storageDelete,
		"storage.list":           storageList,
	}
}

// decodeArgs decodes a step's args mapping into out.
func decodeArgs(op string, node *yaml.Node, out any) error {
	if node == nil || emptyNode(node) {
		return nil
	}
	if err := node.Decode(out); err != nil {
		return &ArgsError{Op: op, Err: err}
	}
	return nil
}

func required(op, field, value string) error {
	if value == "" {
		return &ArgsError{Op: op, Field: field, Err: errors.New("is required")}
	}
	return nil
}
