// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// Three services are registered: Daemon (lifecycle and status), Generation
// (submission), and Episodes (listing and inspection). The server embeds the
// daemon while the client provides typed wrappers so CLI commands fail fast
// when the daemon is offline.
//
// Reuse these types when adding new RPC endpoints to keep the protocol stable
// and compatible with existing command implementations.
package ipc
