// Package segmenter partitions a sampled frame sequence into contiguous
// scene segments. Boundaries come from a weighted dissimilarity score over
// adjacent frames; segments shorter than the configured minimum merge into
// the neighbor across the weaker cut. Output always covers the asset's full
// duration with no gaps or overlaps.
package segmenter
