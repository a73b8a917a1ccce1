// Package media defines the subtitle pipeline currency: transcription
// segments, translated segments, display cues, and the per-job
// configuration that travels with them.
package media
