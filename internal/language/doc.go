// Package language normalizes the language identifiers that flow between
// job configuration, the transcription providers, and the translation
// prompts. Whisper reports full names ("chinese") while everything else
// speaks ISO 639-1 codes; this package converts both into canonical codes.
package language
