// Package llm wraps the external inference capability behind a small
// chat-completions client.
//
// The pipeline treats inference as an opaque contract: given a prompt and
// generation parameters, return text plus usage and timing metadata, or fail
// with one of the exported error classes (authentication, rate limit,
// timeout, provider). Transient failures are retried with exponential backoff
// and Retry-After awareness; authentication failures are never retried.
//
// DecodeJSON tolerates the formatting quirks models add around JSON payloads
// (code fences, prose preamble) so parse failures upstream carry a useful
// snippet of what actually arrived.
package llm
