// Package auth binds firebase/auth: email/password, email link and
// anonymous sign-in, the current user and auth state listeners.
package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/listener"
	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// Auth is a handle to the Auth instance of an app.
type Auth struct {
	app    *firebase.App
	realm  jsrt.Realm
	value  jsrt.Value
	logger *zap.Logger
}

// Get calls getAuth(app).
func Get(ctx context.Context, app *firebase.App) (*Auth, error) {
	realm := app.Realm()
	v, err := sdk.Sync(ctx, realm, "auth.getAuth", func() (jsrt.Value, error) {
		return sdk.Call(realm, sdk.Auth, "getAuth", app.JSValue())
	})
	if err != nil {
		return nil, err
	}
	return &Auth{
		app:    app,
		realm:  realm,
		value:  v,
		logger: app.Logger().With(zap.String("component", "auth")),
	}, nil
}

func (a *Auth) App() *firebase.App { return a.app }

// UserCredential is the result of a sign-in.
type UserCredential struct {
	User          *User
	ProviderID    string
	OperationType string
}

func (a *Auth) decodeCredential(v jsrt.Value) (*UserCredential, error) {
	var wire struct {
		User          jsrt.Value `js:"user,required"`
		ProviderID    string     `js:"providerId"`
		OperationType string     `js:"operationType"`
	}
	if err := serde.Unmarshal(v, &wire); err != nil {
		return nil, err
	}
	user, err := a.decodeUser(wire.User)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &fberrors.DeserializationError{Path: "user", Missing: true}
	}
	return &UserCredential{User: user, ProviderID: wire.ProviderID, OperationType: wire.OperationType}, nil
}

// signIn awaits a credential-returning SDK function called with the Auth
// instance and args.
func (a *Auth) signIn(ctx context.Context, fn string, args ...any) (*UserCredential, error) {
	op := "auth." + fn
	cred, err := promise.Await(ctx, a.realm, op, func() (jsrt.Value, error) {
		values := []jsrt.Value{a.value}
		for _, arg := range args {
			values = append(values, a.realm.ValueOf(arg))
		}
		return sdk.Call(a.realm, sdk.Auth, fn, values...)
	}, a.decodeCredential)
	if err != nil {
		a.logger.Debug("Sign-in failed", zap.String("op", op), zap.Error(err))
		return nil, wrapError(err)
	}
	a.logger.Info("User signed in",
		zap.String("op", op),
		zap.String("uid", cred.User.UID),
	)
	return cred, nil
}

// CreateUserWithEmailAndPassword creates an account and signs it in.
func (a *Auth) CreateUserWithEmailAndPassword(ctx context.Context, email, password string) (*UserCredential, error) {
	return a.signIn(ctx, "createUserWithEmailAndPassword", email, password)
}

func (a *Auth) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*UserCredential, error) {
	return a.signIn(ctx, "signInWithEmailAndPassword", email, password)
}

// SignInWithEmailLink completes a sign-in started by SendSignInLinkToEmail.
func (a *Auth) SignInWithEmailLink(ctx context.Context, email, link string) (*UserCredential, error) {
	return a.signIn(ctx, "signInWithEmailLink", email, link)
}

func (a *Auth) SignInAnonymously(ctx context.Context) (*UserCredential, error) {
	return a.signIn(ctx, "signInAnonymously")
}

// SendSignInLinkToEmail emails a sign-in link. settings must have
// HandleCodeInApp set.
func (a *Auth) SendSignInLinkToEmail(ctx context.Context, email string, settings ActionCodeSettings) error {
	if settings.IsZero() {
		return &fberrors.ValidationError{Builder: "auth.ActionCodeSettings", Message: "settings were not produced by ActionCodeSettingsBuilder.Build"}
	}
	err := promise.Void(ctx, a.realm, "auth.sendSignInLinkToEmail", func() (jsrt.Value, error) {
		arg, err := settings.MarshalJS(a.realm)
		if err != nil {
			return nil, err
		}
		return sdk.Call(a.realm, sdk.Auth, "sendSignInLinkToEmail", a.value, a.realm.ValueOf(email), arg)
	})
	return wrapError(err)
}

// SendPasswordResetEmail emails a password reset link. settings may be nil.
func (a *Auth) SendPasswordResetEmail(ctx context.Context, email string, settings *ActionCodeSettings) error {
	if settings != nil && settings.IsZero() {
		return &fberrors.ValidationError{Builder: "auth.ActionCodeSettings", Message: "settings were not produced by ActionCodeSettingsBuilder.Build"}
	}
	err := promise.Void(ctx, a.realm, "auth.sendPasswordResetEmail", func() (jsrt.Value, error) {
		args := []jsrt.Value{a.value, a.realm.ValueOf(email)}
		if settings != nil {
			arg, err := settings.MarshalJS(a.realm)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return sdk.Call(a.realm, sdk.Auth, "sendPasswordResetEmail", args...)
	})
	return wrapError(err)
}

// IsSignInWithEmailLink reports whether link is an email sign-in link.
func (a *Auth) IsSignInWithEmailLink(ctx context.Context, link string) (bool, error) {
	return sdk.Sync(ctx, a.realm, "auth.isSignInWithEmailLink", func() (bool, error) {
		v, err := sdk.Call(a.realm, sdk.Auth, "isSignInWithEmailLink", a.value, a.realm.ValueOf(link))
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil
	})
}

func (a *Auth) SignOut(ctx context.Context) error {
	err := promise.Void(ctx, a.realm, "auth.signOut", func() (jsrt.Value, error) {
		return sdk.Call(a.realm, sdk.Auth, "signOut", a.value)
	})
	if err != nil {
		return wrapError(err)
	}
	a.logger.Info("User signed out")
	return nil
}

// CurrentUser returns the signed-in user, or nil.
func (a *Auth) CurrentUser(ctx context.Context) (*User, error) {
	return sdk.Sync(ctx, a.realm, "auth.currentUser", func() (*User, error) {
		return a.decodeUser(a.value.Get("currentUser"))
	})
}

// Unsubscribe stops a listener. It is safe to call more than once and from
// inside the listener.
type Unsubscribe func()

// OnAuthStateChanged calls fn with the current user (nil when signed out)
// now and after every sign-in or sign-out. fn runs on its own goroutine, one
// event at a time.
func (a *Auth) OnAuthStateChanged(ctx context.Context, fn func(*User)) (Unsubscribe, error) {
	d := listener.New(a.logger, "onAuthStateChanged", fn)

	undo, err := listener.Register(ctx, a.realm, func() (func(), error) {
		next := a.realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			user, err := a.decodeUser(jsrt.Arg(a.realm, args, 0))
			if err != nil {
				a.logger.Error("Failed to decode auth state", zap.Error(err))
				return a.realm.Undefined()
			}
			d.Push(user)
			return a.realm.Undefined()
		})
		onError := a.realm.FuncOf(func(_ jsrt.Value, args []jsrt.Value) jsrt.Value {
			exc := jsrt.NewException(jsrt.Arg(a.realm, args, 0))
			a.logger.Error("Auth state listener failed", zap.Error(wrapError(fberrors.FromException("auth.onAuthStateChanged", exc))))
			return a.realm.Undefined()
		})
		unsubscribe, err := sdk.Call(a.realm, sdk.Auth, "onAuthStateChanged", a.value, next, onError)
		if err != nil {
			next.Release()
			onError.Release()
			return nil, err
		}
		return func() {
			defer next.Release()
			defer onError.Release()
			if _, err := unsubscribe.Invoke(); err != nil {
				a.logger.Warn("Failed to unsubscribe auth listener", zap.Error(err))
			}
		}, nil
	})
	if err != nil {
		d.Close()
		if ae := fberrors.Abandon(ctx, "auth.onAuthStateChanged", err); ae != nil {
			return nil, ae
		}
		return nil, fberrors.Construction("auth.onAuthStateChanged", err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			d.Close()
			err := a.realm.Run(context.Background(), func() error {
				undo()
				return nil
			})
			if err != nil {
				a.logger.Warn("Failed to unsubscribe auth listener", zap.Error(err))
			}
		})
	}, nil
}
