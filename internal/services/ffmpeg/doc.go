// Package ffmpeg wraps the ffmpeg and ffprobe binaries behind a small service
// used for media validation, audio extraction, and subtitle burn-in.
//
// All invocations go through injectable command runners so stage logic can be
// tested without media files or the binaries installed.
package ffmpeg
