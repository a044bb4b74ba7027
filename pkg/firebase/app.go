// Package firebase binds firebase/app: initializing and looking up apps.
// Service packages (auth, firestore, storage) take an *App.
package firebase

import (
	"context"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/promise"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DefaultAppName is the name the SDK gives an app initialized without one.
const DefaultAppName = "[DEFAULT]"

// App is a handle to a FirebaseApp.
type App struct {
	realm   jsrt.Realm
	value   jsrt.Value
	name    string
	options Options
	logger  *zap.Logger
}

type appConfig struct {
	name   string
	logger *zap.Logger
}

// AppOption configures InitializeApp and GetApp.
type AppOption func(*appConfig)

// WithName initializes a named secondary app.
func WithName(name string) AppOption {
	return func(c *appConfig) { c.name = name }
}

// WithLogger sets the logger inherited by the app's service clients.
func WithLogger(logger *zap.Logger) AppOption {
	return func(c *appConfig) { c.logger = logger }
}

func newAppConfig(opts []AppOption) appConfig {
	c := appConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// InitializeApp calls initializeApp(options, name).
func InitializeApp(ctx context.Context, realm jsrt.Realm, options Options, opts ...AppOption) (*App, error) {
	if options.IsZero() {
		return nil, &fberrors.ValidationError{Builder: "firebase.Options", Message: "options were not produced by OptionsBuilder.Build"}
	}
	cfg := newAppConfig(opts)

	app, err := sdk.Sync(ctx, realm, "firebase.initializeApp", func() (*App, error) {
		jsOpts, err := options.MarshalJS(realm)
		if err != nil {
			return nil, err
		}
		args := []jsrt.Value{jsOpts}
		if cfg.name != "" {
			args = append(args, realm.ValueOf(cfg.name))
		}
		v, err := sdk.Call(realm, sdk.App, "initializeApp", args...)
		if err != nil {
			return nil, err
		}
		return wrapApp(realm, v, cfg.logger)
	})
	if err != nil {
		return nil, err
	}

	app.logger.Info("Firebase app initialized",
		zap.String("project_id", app.options.ProjectID()),
	)
	return app, nil
}

// GetApp calls getApp(name). An empty name selects the default app.
func GetApp(ctx context.Context, realm jsrt.Realm, name string, opts ...AppOption) (*App, error) {
	cfg := newAppConfig(opts)
	return sdk.Sync(ctx, realm, "firebase.getApp", func() (*App, error) {
		var args []jsrt.Value
		if name != "" {
			args = append(args, realm.ValueOf(name))
		}
		v, err := sdk.Call(realm, sdk.App, "getApp", args...)
		if err != nil {
			return nil, err
		}
		return wrapApp(realm, v, cfg.logger)
	})
}

// Apps calls getApps().
func Apps(ctx context.Context, realm jsrt.Realm, opts ...AppOption) ([]*App, error) {
	cfg := newAppConfig(opts)
	return sdk.Sync(ctx, realm, "firebase.getApps", func() ([]*App, error) {
		list, err := sdk.Call(realm, sdk.App, "getApps")
		if err != nil {
			return nil, err
		}
		apps := make([]*App, 0, list.Len())
		for i := 0; i < list.Len(); i++ {
			app, err := wrapApp(realm, list.Index(i), cfg.logger)
			if err != nil {
				return nil, err
			}
			apps = append(apps, app)
		}
		return apps, nil
	})
}

// wrapApp reads the name and options of a FirebaseApp. It runs on the JS
// thread.
func wrapApp(realm jsrt.Realm, v jsrt.Value, logger *zap.Logger) (*App, error) {
	var meta struct {
		Name    string  `js:"name,required"`
		Options Options `js:"options,required"`
	}
	if err := serde.Unmarshal(v, &meta); err != nil {
		return nil, err
	}
	return &App{
		realm:   realm,
		value:   v,
		name:    meta.Name,
		options: meta.Options,
		logger:  logger.With(zap.String("component", "firebase"), zap.String("app", meta.Name)),
	}, nil
}

func (a *App) Name() string { return a.name }
func (a *App) Options() Options { return a.options }
func (a *App) Realm() jsrt.Realm { return a.realm }
func (a *App) JSValue() jsrt.Value { return a.value }
func (a *App) Logger() *zap.Logger { return a.logger }

// Delete calls deleteApp(app). The handle must not be used afterwards.
func (a *App) Delete(ctx context.Context) error {
	err := promise.Void(ctx, a.realm, "firebase.deleteApp", func() (jsrt.Value, error) {
		return sdk.Call(a.realm, sdk.App, "deleteApp", a.value)
	})
	if err != nil {
		return err
	}
	a.logger.Info("Firebase app deleted")
	return nil
}
