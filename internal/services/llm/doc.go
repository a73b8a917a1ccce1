// Package llm wraps an OpenAI-compatible chat completion endpoint with the
// retry and payload-decoding behaviour the translation pipeline depends on.
//
// The client retries transient HTTP failures (408, 429, 5xx, network timeouts)
// with exponential backoff, honours Retry-After headers, and tolerates the
// formatting quirks of JSON-mode responses (code fences, prose wrappers).
package llm
