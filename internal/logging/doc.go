// Package logging configures the process-wide slog logger and provides
// attribute helpers plus the standardized field names used across the
// pipeline. Stage code logs through a per-job child logger carried on the
// context so every record lands with job and stage identity attached.
package logging
