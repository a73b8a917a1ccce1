// Package diarize labels transcript segments with speaker identities.
//
// A provider produces speaker turns (who spoke when); AssignSpeakers then
// maps each transcript segment to the turn it overlaps the most. Segments
// that overlap no turn stay unlabeled rather than guessing.
package diarize
