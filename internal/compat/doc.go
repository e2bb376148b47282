// Package compat checks a project document against per-version editor
// capability tables: track and clip counts, timeline length, and which
// transition and effect kinds each version accepts.
package compat
