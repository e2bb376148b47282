// Package sampler extracts representative frames and audio spans from a
// video asset and computes the mechanical features downstream stages run on.
// Frame decoding goes through a bounded worker pool; results are re-sorted
// by timestamp so output ordering never depends on worker scheduling.
package sampler
