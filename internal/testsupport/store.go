package testsupport

import (
	"testing"

	"clipforge/internal/config"
	"clipforge/internal/featurecache"
	"clipforge/internal/logging"
)

// MustOpenCache opens a featurecache.Store for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *featurecache.Store {
	t.Helper()

	store, err := featurecache.Open(cfg.FeatureCache.Path, logging.NewNop())
	if err != nil {
		t.Fatalf("featurecache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
