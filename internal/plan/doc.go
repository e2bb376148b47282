// Package plan turns enriched scene segments into an ordered edit decision
// list: which spans to keep, where transitions land, and which overlays
// apply. Synthesis is deterministic; identical input always yields an
// identical plan.
package plan
