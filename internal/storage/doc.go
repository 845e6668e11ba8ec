// Package storage owns the sqlite database shared by the episode, profile,
// and job stores: opening with the required pragmas, applying the embedded
// schema, checking the schema version, and retrying busy errors.
package storage
