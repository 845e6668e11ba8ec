// Package generation is the core of the podcast pipeline: submission of
// generation requests, the worker that runs them, and status derivation.
//
// The Submitter persists a pending episode before the job reaches the
// executor so the record exists no matter how the asynchronous half fares.
// The Worker picks the job up on the other side of the channel, re-resolves
// profiles by name, reconciles the pending episode by (name, owner), calls
// the synthesis engine, places the artifact through the tiered store, and
// always reports a structured terminal result. The Aggregator folds episode
// and job state into the single status string clients see.
package generation
