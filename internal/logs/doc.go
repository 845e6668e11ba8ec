// Package logs reads the daemon log file with bounded memory so callers can
// show recent activity without loading the whole file.
//
// A negative offset asks for the last N lines, the returned offset resumes
// the next read, and follow mode polls for fresh lines until a wait elapses.
// The daemon answers `podforge logs` through this package, and the CLI falls
// back to it directly when no daemon is running.
package logs
