// Package services defines shared utilities consumed by the generation
// pipeline and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, episode IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent classifications (configuration vs synthesis vs storage
//     vs not-found) for API status codes and retry decisions.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across components.
package services
