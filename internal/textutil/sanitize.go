package textutil

import "strings"

// keyFileNameReplacer replaces object-key-hostile characters in filenames.
var keyFileNameReplacer = strings.NewReplacer(
	":", "_",
	" ", "_",
)

// RecordSuffix reduces a table-style record id ("table:opaque-id") to the
// opaque suffix after the last colon. Plain identifiers pass through
// unchanged, so the result is stable whether or not callers prefix them.
func RecordSuffix(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if idx := strings.LastIndexByte(id, ':'); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// SafeFileName replaces colons and spaces in a filename with underscores.
// The replacement is idempotent: applying it twice yields the same result.
func SafeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return keyFileNameReplacer.Replace(name)
}
