// Package workflow drives queued jobs through the subtitle pipeline.
//
// The manager polls the queue and runs one job at a time through a fixed
// stage sequence: validate, extract audio, transcribe, optionally diarize,
// translate, optionally verify, refine timing, serialize, optionally mux.
// Stages run strictly in order; only the translation stage is internally
// concurrent. Each transition persists the job row and publishes a progress
// event, so a subscriber reconnecting mid-job sees a consistent stream.
// Cancellation is cooperative: the cancel flag is checked between stages and
// propagated into the running stage's context, and a cancelled job reaches
// the cancelled terminal without ever emitting a completed event.
package workflow
