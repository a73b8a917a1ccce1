// Package translate converts transcript segments into the target language
// through an LLM chat endpoint.
//
// Segments are grouped into batches bounded by character and segment counts,
// translated by a bounded pool of workers, and reassembled in source order.
// The wire format is count-strict: a batch of N segments must come back as
// exactly N translations separated by "---" lines, and a mismatch fails the
// batch rather than silently shifting every later cue. An optional second
// pass re-reads each translation against its source and applies corrections.
package translate
