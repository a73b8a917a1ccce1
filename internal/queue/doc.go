// Package queue persists translation jobs in SQLite and models their
// lifecycle.
//
// A job moves through a fixed sequence of stage statuses (validating,
// extracting, transcribing, ...) until it reaches a terminal status:
// completed, failed, or cancelled. The store keeps every intermediate
// artifact path on the row so a restarted server can resume or report any
// job without reconstructing state.
package queue
