// Package notifications delivers generation events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Completed and failed generations can be toggled independently so a flaky
// engine does not drown out the finishes worth hearing about.
//
// Extend this package if you need alternative transports; callers depend
// only on the Service interface.
package notifications
