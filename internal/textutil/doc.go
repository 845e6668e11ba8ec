// Package textutil provides text processing utilities for storage-key
// sanitization and display formatting.
//
// The primary use cases are:
//   - Normalizing owner/episode identifiers into filesystem- and
//     object-key-safe path segments
//   - Sanitizing artifact filenames for safe storage keys
//   - Deriving human-readable display titles from episode names
//
// Identifier normalization understands table-style record ids
// ("table:opaque-id") and reduces them to the opaque suffix so that keys
// remain stable whether or not callers pass the prefixed form.
package textutil
