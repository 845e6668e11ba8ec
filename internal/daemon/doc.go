// Package daemon coordinates the long-running podforge process and system
// integration points.
//
// It wires configuration, the shared database, the job executor, the
// generation worker, and the HTTP API into a single lifecycle with
// flock-based locking to prevent multiple instances. The daemon owns startup
// preflight checks, interrupted-job recovery, and the status snapshot served
// over HTTP and IPC.
//
// Keep orchestration logic here: generation semantics live in the generation
// package and job dispatch in the executor package while the daemon focuses
// on startup, shutdown, and high level coordination.
package daemon
