// Package preflight provides readiness checks for the filesystem paths,
// database, and synthesis engine that podforge depends on.
//
// These checks run in two contexts:
//   - Daemon startup calls RunAll and refuses to start when a required check
//     fails, so a broken data directory is caught before jobs are accepted.
//   - The CLI "podforge status" command renders the same results to explain
//     why the daemon is degraded or refusing to start.
//
// The engine check is advisory: an unreachable engine degrades the daemon
// (submissions queue up and fail at synthesis time) but never blocks startup.
package preflight
