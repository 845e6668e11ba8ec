// Package episodes persists generation targets, the durable record for each
// requested podcast episode. An episode is created pending before its job is
// submitted, annotated with a job reference by the worker, and finalized with
// an artifact reference after synthesis.
package episodes
