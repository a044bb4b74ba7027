package config

import (
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FBHOST_FIREBASE_API_KEY.
const EnvPrefix = "FBHOST"

type HostConfig struct {
	LogLevel string            `mapstructure:"log_level"`
	Scenario string            `mapstructure:"scenario"`
	FakeSDK  bool              `mapstructure:"fake_sdk"`
	Modules  map[string]string `mapstructure:"modules"`
	Firebase FirebaseConfig    `mapstructure:"firebase"`
	Fetch    FetchConfig       `mapstructure:"fetch"`
	Verify   VerifyConfig      `mapstructure:"verify"`
}

// FirebaseConfig mirrors the web app options passed to initializeApp.
type FirebaseConfig struct {
	AppName           string `mapstructure:"app_name"`
	APIKey            string `mapstructure:"api_key"`
	AuthDomain        string `mapstructure:"auth_domain"`
	DatabaseURL       string `mapstructure:"database_url"`
	ProjectID         string `mapstructure:"project_id"`
	StorageBucket     string `mapstructure:"storage_bucket"`
	MessagingSenderID string `mapstructure:"messaging_sender_id"`
	AppID             string `mapstructure:"app_id"`
	MeasurementID     string `mapstructure:"measurement_id"`
}

// FetchConfig controls the fetch() global the SDK bundles use.
type FetchConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Per-request timeout. Zero means none.
	Timeout time.Duration `mapstructure:"timeout"`
}

// VerifyConfig configures the admin SDK used by auth.verifyIdToken.
type VerifyConfig struct {
	// Service account JSON. Empty uses application default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
	// Project to verify against. Defaults to firebase.project_id.
	ProjectID string `mapstructure:"project_id"`
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"scenario":  "scenario",
	"fake-sdk":  "fake_sdk",
	"module":    "modules",
}

// LoadHostConfig merges defaults, the optional config file, FBHOST_
// environment variables and the flags set on flags, in increasing
// precedence. flags may be nil.
func LoadHostConfig(configPath string, flags *pflag.FlagSet) (*HostConfig, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("scenario", "")
	v.SetDefault("fake_sdk", false)
	v.SetDefault("modules", map[string]string{})

	v.SetDefault("firebase.app_name", "")
	v.SetDefault("firebase.api_key", "")
	v.SetDefault("firebase.auth_domain", "")
	v.SetDefault("firebase.database_url", "")
	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.storage_bucket", "")
	v.SetDefault("firebase.messaging_sender_id", "")
	v.SetDefault("firebase.app_id", "")
	v.SetDefault("firebase.measurement_id", "")

	v.SetDefault("fetch.enabled", true)
	v.SetDefault("fetch.timeout", 30*time.Second)

	v.SetDefault("verify.credentials_file", "")
	v.SetDefault("verify.project_id", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg HostConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Verify.ProjectID == "" {
		cfg.Verify.ProjectID = cfg.Firebase.ProjectID
	}

	return &cfg, nil
}
