package firebase

import (
	"net/url"
	"strings"

	"github.com/woxQAQ/firebase-wasm/internal/serde"
	"github.com/woxQAQ/firebase-wasm/pkg/fberrors"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt"
)

type optionsWire struct {
	APIKey            string `js:"apiKey,required"`
	ProjectID         string `js:"projectId,required"`
	AuthDomain        string `js:"authDomain,omitempty"`
	DatabaseURL       string `js:"databaseURL,omitempty"`
	StorageBucket     string `js:"storageBucket,omitempty"`
	MessagingSenderID string `js:"messagingSenderId,omitempty"`
	AppID             string `js:"appId,omitempty"`
	MeasurementID     string `js:"measurementId,omitempty"`
}

// Options is the immutable app configuration produced by OptionsBuilder.
// The zero value is rejected by InitializeApp.
type Options struct {
	wire optionsWire
	tree any
}

func (o Options) APIKey() string { return o.wire.APIKey }
func (o Options) ProjectID() string { return o.wire.ProjectID }
func (o Options) AuthDomain() string { return o.wire.AuthDomain }
func (o Options) DatabaseURL() string { return o.wire.DatabaseURL }
func (o Options) StorageBucket() string { return o.wire.StorageBucket }
func (o Options) MessagingSenderID() string { return o.wire.MessagingSenderID }
func (o Options) AppID() string { return o.wire.AppID }
func (o Options) MeasurementID() string { return o.wire.MeasurementID }

// IsZero reports whether o was not produced by Build.
func (o Options) IsZero() bool {
	return o.tree == nil
}

// Equal compares the configured values.
func (o Options) Equal(other Options) bool {
	return o.wire == other.wire
}

// MarshalJS writes the options into a fresh JS object.
func (o Options) MarshalJS(r jsrt.Realm) (jsrt.Value, error) {
	return serde.Materialize(r, o.tree)
}

// UnmarshalJS reads app.options back.
func (o *Options) UnmarshalJS(v jsrt.Value) error {
	var wire optionsWire
	if err := serde.Unmarshal(v, &wire); err != nil {
		return err
	}
	tree, err := serde.Encode(wire)
	if err != nil {
		return err
	}
	*o = Options{wire: wire, tree: tree}
	return nil
}

// OptionsBuilder assembles Options. apiKey and projectId are required.
type OptionsBuilder struct {
	wire optionsWire
}

func NewOptionsBuilder() OptionsBuilder {
	return OptionsBuilder{}
}

func (b OptionsBuilder) APIKey(v string) OptionsBuilder { b.wire.APIKey = v; return b }
func (b OptionsBuilder) ProjectID(v string) OptionsBuilder { b.wire.ProjectID = v; return b }
func (b OptionsBuilder) AuthDomain(v string) OptionsBuilder { b.wire.AuthDomain = v; return b }
func (b OptionsBuilder) DatabaseURL(v string) OptionsBuilder { b.wire.DatabaseURL = v; return b }
func (b OptionsBuilder) StorageBucket(v string) OptionsBuilder { b.wire.StorageBucket = v; return b }
func (b OptionsBuilder) MessagingSenderID(v string) OptionsBuilder { b.wire.MessagingSenderID = v; return b }
func (b OptionsBuilder) AppID(v string) OptionsBuilder { b.wire.AppID = v; return b }
func (b OptionsBuilder) MeasurementID(v string) OptionsBuilder { b.wire.MeasurementID = v; return b }

// Build validates the configuration and serializes it once.
func (b OptionsBuilder) Build() (Options, error) {
	if err := b.validate(); err != nil {
		return Options{}, err
	}
	tree, err := serde.Encode(b.wire)
	if err != nil {
		return Options{}, err
	}
	return Options{wire: b.wire, tree: tree}, nil
}

func (b OptionsBuilder) validate() error {
	invalid := func(field, msg string) error {
		return &fberrors.ValidationError{Builder: "firebase.OptionsBuilder", Field: field, Message: msg}
	}
	if strings.TrimSpace(b.wire.APIKey) == "" {
		return invalid("apiKey", "is required")
	}
	if strings.TrimSpace(b.wire.ProjectID) == "" {
		return invalid("projectId", "is required")
	}
	if d := b.wire.AuthDomain; d != "" && strings.Contains(d, "://") {
		return invalid("authDomain", "must be a host name without a scheme")
	}
	if raw := b.wire.DatabaseURL; raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return invalid("databaseURL", "must be an https URL")
		}
	}
	if strings.HasPrefix(b.wire.StorageBucket, "gs://") {
		return invalid("storageBucket", "must be a bucket name, not a gs:// URL")
	}
	return nil
}
