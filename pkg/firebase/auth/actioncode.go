package auth

import (
	"net/url"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

type androidWire struct {
	PackageName    string `js:"packageName,required"`
	InstallApp     bool   `js:"installApp,omitempty"`
	MinimumVersion string `js:"minimumVersion,omitempty"`
}

type iosWire struct {
	BundleID string `js:"bundleId,required"`
}

type actionCodeWire struct {
	URL               string       `js:"url,required"`
	HandleCodeInApp   bool         `js:"handleCodeInApp,omitempty"`
	Android           *androidWire `js:"android,omitempty"`
	IOS               *iosWire     `js:"iOS,omitempty"`
	DynamicLinkDomain string       `js:"dynamicLinkDomain,omitempty"`
}

// ActionCodeSettings configures email action links. Build one with
// ActionCodeSettingsBuilder.
type ActionCodeSettings struct {
	wire actionCodeWire
	tree any
}

func (s ActionCodeSettings) URL() string { return s.wire.URL }
func (s ActionCodeSettings) HandleCodeInApp() bool { return s.wire.HandleCodeInApp }
func (s ActionCodeSettings) DynamicLinkDomain() string { return s.wire.DynamicLinkDomain }

// IsZero reports whether s was not produced by Build.
func (s ActionCodeSettings) IsZero() bool {
	return s.tree == nil
}

// MarshalJS writes the settings into a fresh JS object.
func (s ActionCodeSettings) MarshalJS(r jsrt.Realm) (jsrt.Value, error) {
	return serde.Materialize(r, s.tree)
}

// ActionCodeSettingsBuilder assembles ActionCodeSettings. The continue URL
// is required.
type ActionCodeSettingsBuilder struct {
	wire actionCodeWire
}

func NewActionCodeSettingsBuilder(continueURL string) ActionCodeSettingsBuilder {
	return ActionCodeSettingsBuilder{wire: actionCodeWire{URL: continueURL}}
}

func (b ActionCodeSettingsBuilder) URL(v string) ActionCodeSettingsBuilder {
	b.wire.URL = v
	return b
}

// HandleCodeInApp must be true for email sign-in links.
func (b ActionCodeSettingsBuilder) HandleCodeInApp(v bool) ActionCodeSettingsBuilder {
	b.wire.HandleCodeInApp = v
	return b
}

func (b ActionCodeSettingsBuilder) Android(packageName string, installApp bool, minimumVersion string) ActionCodeSettingsBuilder {
	b.wire.Android = &androidWire{PackageName: packageName, InstallApp: installApp, MinimumVersion: minimumVersion}
	return b
}

func (b ActionCodeSettingsBuilder) IOS(bundleID string) ActionCodeSettingsBuilder {
	b.wire.IOS = &iosWire{BundleID: bundleID}
	return b
}

func (b ActionCodeSettingsBuilder) DynamicLinkDomain(v string) ActionCodeSettingsBuilder {
	b.wire.DynamicLinkDomain = v
	return b
}

// Build validates the settings and serializes them once.
func (b ActionCodeSettingsBuilder) Build() (ActionCodeSettings, error) {
	invalid := func(field, msg string) error {
		return &fberrors.ValidationError{Builder: "auth.ActionCodeSettingsBuilder", Field: field, Message: msg}
	}
	if b.wire.URL == "" {
		return ActionCodeSettings{}, invalid("url", "is required")
	}
	if u, err := url.Parse(b.wire.URL); err != nil || !u.IsAbs() {
		return ActionCodeSettings{}, invalid("url", "must be an absolute URL")
	}
	if b.wire.Android != nil && b.wire.Android.PackageName == "" {
		return ActionCodeSettings{}, invalid("android.packageName", "is required when android is set")
	}
	if b.wire.IOS != nil && b.wire.IOS.BundleID == "" {
		return ActionCodeSettings{}, invalid("iOS.bundleId", "is required when iOS is set")
	}

	// The builder's pointers must not be shared with the result.
	wire := b.wire
	if wire.Android != nil {
		a := *wire.Android
		wire.Android = &a
	}
	if wire.IOS != nil {
		i := *wire.IOS
		wire.IOS = &i
	}
	tree, err := serde.Encode(wire)
	if err != nil {
		return ActionCodeSettings{}, err
	}
	return ActionCodeSettings{wire: wire, tree: tree}, nil
}
