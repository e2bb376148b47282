package testsupport

import (
	"path/filepath"
	"testing"

	"clipforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Inference.APIKey = "test"
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.TempDir = filepath.Join(base, "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.FeatureCache.Enabled = false
	cfgVal.FeatureCache.Path = filepath.Join(base, "cache", "features.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure config directories: %v", err)
	}

	return builder.cfg
}

// WithFeatureCache enables the cross-run cache on the test config.
func WithFeatureCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.FeatureCache.Enabled = true
	}
}

// WithObjective overrides the editing objective on the test config.
func WithObjective(objective string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Editing.Objective = objective
	}
}

// WithTargetVersion overrides the editor version the project targets.
func WithTargetVersion(version string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Project.TargetVersion = version
	}
}
