// Package enrich fills the semantic fields of scene segments through an
// inference backend. Calls run through a bounded worker pool; per-segment
// failures degrade to sentinel values rather than failing the run, while
// authentication failures and a fully failed pass abort it.
package enrich
