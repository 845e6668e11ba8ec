// Package executor runs submitted command jobs through registered handlers.
//
// The jobs table in SQLite is the durable source of truth; the dispatch
// channel is only a wake-up mechanism. Submission inserts a pending row and
// offers the id to the channel without blocking, a bounded worker pool claims
// rows with a conditional status update so a job never runs twice, and a
// periodic requeue sweep redelivers anything the channel missed. Jobs left
// running by a crashed process are reset to pending when the executor starts.
//
// Handlers receive a job-scoped context and must tolerate cancellation; a
// handler panic is recovered and recorded as a job failure.
package executor
