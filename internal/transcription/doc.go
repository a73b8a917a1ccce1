// Package transcription turns an extracted audio track into timed text
// segments.
//
// Long inputs are cut into overlapping chunks so a provider failure costs a
// chunk retry rather than the whole file. Two providers are supported: the
// hosted Whisper API and a local whisperx CLI. When the source language is
// set to auto, the language reported per chunk is reconciled by majority
// vote and reused as a hint for the remaining chunks.
package transcription
