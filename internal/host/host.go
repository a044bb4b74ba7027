// Package host wires configuration, the goja runtime and the scenario
// runner together for the fbhost command.
package host

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/woxQAQ/firebase-wasm/internal/config"
	"github.com/woxQAQ/firebase-wasm/internal/fakesdk"
	"github.com/woxQAQ/firebase-wasm/internal/scenario"
	"github.com/woxQAQ/firebase-wasm/internal/sdk"
	"github.com/woxQAQ/firebase-wasm/pkg/firebase"
	"github.com/woxQAQ/firebase-wasm/pkg/jsrt/gojart"
)

type Host struct {
	cfg      *config.HostConfig
	logger   *zap.Logger
	runtime  *gojart.Runtime
	registry *scenario.Registry
}

// New starts a JS runtime with the configured SDK bundles.
func New(ctx context.Context, cfg *config.HostConfig, logger *zap.Logger) (*Host, error) {
	modules := moduleSources(cfg)
	if !hasModule(modules, sdk.App) {
		return nil, fmt.Errorf("no bundle configured for %s: set modules or fake_sdk", sdk.App)
	}

	rtConfig := &gojart.Config{
		Modules:      modules,
		EnableFetch:  cfg.Fetch.Enabled,
		HTTPClient:   http.DefaultClient,
		FetchTimeout: cfg.Fetch.Timeout,
	}

	runtime, err := gojart.New(ctx, logger, rtConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JS runtime: %w", err)
	}

	logger.Info("Host initialized",
		zap.Int("modules", len(modules)),
		zap.Bool("fake_sdk", cfg.FakeSDK),
		zap.Bool("fetch_enabled", cfg.Fetch.Enabled),
	)

	return &Host{
		cfg:      cfg,
		logger:   logger,
		runtime:  runtime,
		registry: scenario.DefaultRegistry(logger),
	}, nil
}

// moduleSources lists configured bundles, sorted by specifier. With
// fake_sdk set, the fakes fill in specifiers that have no bundle.
func moduleSources(cfg *config.HostConfig) []gojart.ModuleSource {
	names := make([]string, 0, len(cfg.Modules))
	for name := range cfg.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []gojart.ModuleSource
	if cfg.FakeSDK {
		for _, src := range fakesdk.Sources() {
			if _, ok := cfg.Modules[src.Specifier()]; !ok {
				out = append(out, src)
			}
		}
	}
	for _, name := range names {
		out = append(out, &gojart.FileModuleSource{Module: name, Path: cfg.Modules[name]})
	}
	return out
}

func hasModule(modules []gojart.ModuleSource, specifier string) bool {
	for _, m := range modules {
		if m.Specifier() == specifier {
			return true
		}
	}
	return false
}

// Runtime returns the JS runtime.
func (h *Host) Runtime() *gojart.Runtime {
	return h.runtime
}

// Registry returns the op registry, for adding custom ops.
func (h *Host) Registry() *scenario.Registry {
	return h.registry
}

// Options merges the configured firebase options with a scenario's
// overrides and validates the result.
func (h *Host) Options(spec *scenario.AppSpec) (firebase.Options, string, error) {
	fc := h.cfg.Firebase
	name := fc.AppName
	if spec != nil {
		name = pick(spec.Name, name)
		fc.APIKey = pick(spec.APIKey, fc.APIKey)
		fc.ProjectID = pick(spec.ProjectID, fc.ProjectID)
		fc.AuthDomain = pick(spec.AuthDomain, fc.AuthDomain)
		fc.StorageBucket = pick(spec.StorageBucket, fc.StorageBucket)
		fc.AppID = pick(spec.AppID, fc.AppID)
	}

	opts, err := firebase.NewOptionsBuilder().
		APIKey(fc.APIKey).
		ProjectID(fc.ProjectID).
		AuthDomain(fc.AuthDomain).
		DatabaseURL(fc.DatabaseURL).
		StorageBucket(fc.StorageBucket).
		MessagingSenderID(fc.MessagingSenderID).
		AppID(fc.AppID).
		MeasurementID(fc.MeasurementID).
		Build()
	return opts, name, err
}

func pick(override, base string) string {
	if override != "" {
		return override
	}
	return base
}

// RunScenario initializes an app for s, runs it and deletes the app.
func (h *Host) RunScenario(ctx context.Context, s *scenario.Scenario, out io.Writer) (*scenario.Summary, error) {
	opts, name, err := h.Options(s.App)
	if err != nil {
		return nil, err
	}

	appOpts := []firebase.AppOption{firebase.WithLogger(h.logger)}
	if name != "" {
		appOpts = append(appOpts, firebase.WithName(name))
	}
	app, err := firebase.InitializeApp(ctx, h.runtime, opts, appOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := app.Delete(context.Background()); err != nil {
			h.logger.Warn("Failed to delete app", zap.String("app", app.Name()), zap.Error(err))
		}
	}()

	env := scenario.NewEnv(app)
	verify := h.cfg.Verify
	env.NewVerifier = func(ctx context.Context) (scenario.TokenVerifier, error) {
		return scenario.NewAdminVerifier(ctx, verify)
	}

	runner := scenario.NewRunner(h.registry, env, out, h.logger)
	return runner.Run(ctx, s)
}

// RunFile parses and runs the scenario at path.
func (h *Host) RunFile(ctx context.Context, path string, out io.Writer) (*scenario.Summary, error) {
	s, err := scenario.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return h.RunScenario(ctx, s, out)
}

// Close gracefully shuts down the host.
func (h *Host) Close(ctx context.Context) error {
	h.logger.Info("Shutting down host")

	if err := h.runtime.Close(ctx); err != nil {
		h.logger.Error("Failed to shutdown JS runtime", zap.Error(err))
		return err
	}

	h.logger.Info("Host shutdown complete")
	return nil
}
