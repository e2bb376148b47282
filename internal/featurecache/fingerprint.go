package featurecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"clipforge/internal/sampler"
)

// AssetFingerprint identifies an asset by path, size, and modification time.
// Editing the file in place invalidates every cached entry for it without
// needing to hash the content.
func AssetFingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat asset: %w", err)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d", path, info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OptionsFingerprint identifies the sampling options that shaped a result.
// Only fields that change the output participate.
func OptionsFingerprint(opts sampler.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%.6f\x00%s\x00%d", opts.IntervalSeconds, opts.Strategy, opts.MaxFrames)
	return hex.EncodeToString(h.Sum(nil))
}
