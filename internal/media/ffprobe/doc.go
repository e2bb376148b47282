// Package ffprobe shells out to ffprobe and decodes its JSON inspection
// payload into typed stream and container metadata.
//
// The sampler uses it to learn an asset's duration, frame rate, and
// resolution before deciding a sampling cadence, and to reject paths that do
// not decode as media at all.
package ffprobe
