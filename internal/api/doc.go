// Package api defines wire-format types, converters, and action services for
// the IPC and HTTP API layer. It translates internal episode and job models
// into transport-friendly DTOs so the CLI, the Unix-socket RPC surface, and
// the HTTP server render the same payloads without coupling to internal types.
//
// # Key Types
//
// Episode: transport representation of a generation target with profile
// snapshots, derived job status, and the audio endpoint URL when an artifact
// exists.
//
// JobStatus: a generation job record with its executor state and raw result
// payload.
//
// GenerationReceipt: the acknowledgement returned by a submission, carrying
// the job id for later status polling.
//
// DaemonStatus: daemon running state, job stats, store paths, and engine
// health.
//
// # Services
//
// EpisodeService: list/describe/delete over the episode store, deriving
// status through an Aggregator and cleaning up artifacts on delete.
//
// GenerationService: submission plus job status lookups.
//
// BuildDaemonStatus: assembles the status DTO from daemon-owned handles,
// degrading to partial data when a source is unavailable.
//
// # Design Notes
//
// DTOs use snake_case JSON tags matching the engine request and worker result
// conventions, so every payload in the system speaks one casing. Profile
// snapshots, transcripts, and outlines are passed through as json.RawMessage
// to avoid double-encoding. Timestamps use RFC3339 with milliseconds.
//
// Lookup misses return (nil, nil) rather than errors; transports map nil to
// their 404 equivalent. Errors are reserved for store and executor failures.
package api
