// Package workflow coordinates a full pipeline run over one asset:
// sampling (with the feature cache consulted first), segmentation,
// enrichment, plan synthesis, project serialization, and the final
// compatibility check. Each run writes its project and a manifest of
// degradations under its own output directory; failed runs leave nothing
// behind.
package workflow
