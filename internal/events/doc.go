// Package events distributes job progress to interested subscribers.
//
// Stages and the workflow manager publish Event records as a job advances;
// the HTTP server subscribes per job and relays each event as one NDJSON
// line on the client's progress stream. The hub keeps a bounded replay
// buffer per job so a subscriber attached moments after submission still
// sees the earliest events.
package events
