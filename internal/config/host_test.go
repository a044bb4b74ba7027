package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "fbhost*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestLoadHostConfigDefaults(t *testing.T) {
	cfg, err := LoadHostConfig("", nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Default log level mismatch: got %s, want info", cfg.LogLevel)
	}

	if cfg.FakeSDK {
		t.Errorf("Fake SDK should be disabled by default")
	}

	if !cfg.Fetch.Enabled {
		t.Errorf("Fetch should be enabled by default")
	}

	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("Default fetch timeout mismatch: got %v, want 30s", cfg.Fetch.Timeout)
	}

	if len(cfg.Modules) != 0 {
		t.Errorf("Default modules mismatch: got %v, want none", cfg.Modules)
	}
}

func TestLoadHostConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
scenario: ./smoke.yaml
modules:
  firebase/app: ./bundles/app.js
  firebase/auth: ./bundles/auth.js
firebase:
  api_key: key-123
  project_id: demo
  storage_bucket: demo.appspot.com
fetch:
  timeout: 5s
`)

	cfg, err := LoadHostConfig(path, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Log level mismatch: got %s, want debug", cfg.LogLevel)
	}

	if cfg.Scenario != "./smoke.yaml" {
		t.Errorf("Scenario mismatch: got %s, want ./smoke.yaml", cfg.Scenario)
	}

	wantModules := map[string]string{
		"firebase/app":  "./bundles/app.js",
		"firebase/auth": "./bundles/auth.js",
	}
	if diff := cmp.Diff(wantModules, cfg.Modules); diff != "" {
		t.Errorf("Modules mismatch (-want +got):\n%s", diff)
	}

	want := FirebaseConfig{APIKey: "key-123", ProjectID: "demo", StorageBucket: "demo.appspot.com"}
	if diff := cmp.Diff(want, cfg.Firebase); diff != "" {
		t.Errorf("Firebase config mismatch (-want +got):\n%s", diff)
	}

	if cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("Fetch timeout mismatch: got %v, want 5s", cfg.Fetch.Timeout)
	}

	if cfg.Verify.ProjectID != "demo" {
		t.Errorf("Verify project should default to firebase.project_id, got %q", cfg.Verify.ProjectID)
	}
}

func TestLoadHostConfigMissingFile(t *testing.T) {
	if _, err := LoadHostConfig("/nonexistent/fbhost.yaml", nil); err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestLoadHostConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
firebase:
  api_key: from-file
  project_id: demo
`)
	t.Setenv("FBHOST_FIREBASE_API_KEY", "from-env")
	t.Setenv("FBHOST_LOG_LEVEL", "warn")

	cfg, err := LoadHostConfig(path, nil)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Firebase.APIKey != "from-env" {
		t.Errorf("Expected env to override api key, got %q", cfg.Firebase.APIKey)
	}
	if cfg.Firebase.ProjectID != "demo" {
		t.Errorf("Expected project from file, got %q", cfg.Firebase.ProjectID)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %q", cfg.LogLevel)
	}
}

func TestLoadHostConfigFlags(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
scenario: ./from-file.yaml
`)
	t.Setenv("FBHOST_SCENARIO", "./from-env.yaml")

	flags := pflag.NewFlagSet("fbhost", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("scenario", "", "")
	flags.Bool("fake-sdk", false, "")
	if err := flags.Parse([]string{"--scenario", "./from-flag.yaml", "--fake-sdk"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	cfg, err := LoadHostConfig(path, flags)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Scenario != "./from-flag.yaml" {
		t.Errorf("Expected flag to win, got %q", cfg.Scenario)
	}
	if !cfg.FakeSDK {
		t.Errorf("Expected fake SDK enabled by flag")
	}
	// Unchanged flags do not override the file.
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level from file, got %q", cfg.LogLevel)
	}
}
