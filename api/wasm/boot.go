package wasm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

// DefaultConfigGlobal holds the web app config object on the page.
const DefaultConfigGlobal = "firebaseConfig"

// webConfig is the object the Firebase console hands out for web apps.
type webConfig struct {
	APIKey            string `js:"apiKey"`
	AuthDomain        string `js:"authDomain"`
	DatabaseURL       string `js:"databaseURL"`
	ProjectID         string `js:"projectId"`
	StorageBucket     string `js:"storageBucket"`
	MessagingSenderID string `js:"messagingSenderId"`
	AppID             string `js:"appId"`
	MeasurementID     string `js:"measurementId"`
}

// OptionsFromGlobal reads and validates globalThis[name].
func OptionsFromGlobal(ctx context.Context, realm jsrt.Realm, name string) (firebase.Options, error) {
	var wc webConfig
	err := realm.Run(ctx, func() error {
		v := realm.Global().Get(name)
		if jsrt.IsNullish(v) {
			return fmt.Errorf("globalThis.%s is not set", name)
		}
		return serde.Unmarshal(v, &wc)
	})
	if err != nil {
		return firebase.Options{}, err
	}
	return firebase.NewOptionsBuilder().
		APIKey(wc.APIKey).
		AuthDomain(wc.AuthDomain).
		DatabaseURL(wc.DatabaseURL).
		ProjectID(wc.ProjectID).
		StorageBucket(wc.StorageBucket).
		MessagingSenderID(wc.MessagingSenderID).
		AppID(wc.AppID).
		MeasurementID(wc.MeasurementID).
		Build()
}

// Boot initializes the default app from globalThis.firebaseConfig and
// exports the app functions under globalThis.goFirebase.
func Boot(ctx context.Context, realm jsrt.Realm, logger *zap.Logger) (*API, error) {
	opts, err := OptionsFromGlobal(ctx, realm, DefaultConfigGlobal)
	if err != nil {
		return nil, err
	}
	app, err := firebase.InitializeApp(ctx, realm, opts, firebase.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	api := NewAPI(ctx, realm, logger)
	RegisterFirebase(api, app)
	if err := api.ExportTo(ctx, DefaultNamespace); err != nil {
		return nil, err
	}
	return api, nil
}
