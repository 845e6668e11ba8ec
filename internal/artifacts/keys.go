package artifacts

import (
	"strings"

	"podforge/internal/textutil"
)

// ObjectScheme prefixes references held by the object tier.
const ObjectScheme = "s3://"

// IsObjectRef reports whether a reference points at the object tier. Tier
// selection is determined by the literal prefix alone; no side state tracks
// where an artifact lives.
func IsObjectRef(ref string) bool {
	return strings.HasPrefix(ref, ObjectScheme)
}

// BuildKey derives the object key for an episode asset:
// episodes/<owner>/<episode>/<filename>. Record-style identifiers
// (table:opaque) degrade to the opaque suffix, an empty owner falls back to
// "anonymous", and unsafe filename characters become underscores. The same
// inputs always produce the same key.
func BuildKey(owner, episodeID, filename string) string {
	cleanOwner := textutil.RecordSuffix(owner)
	if cleanOwner == "" {
		cleanOwner = "anonymous"
	}
	cleanEpisode := textutil.RecordSuffix(episodeID)
	return "episodes/" + cleanOwner + "/" + cleanEpisode + "/" + textutil.SafeFileName(filename)
}

// ParseObjectRef splits an s3://bucket/key reference. ok is false when the
// reference is not an object reference or lacks a bucket or key segment.
func ParseObjectRef(ref string) (bucket, key string, ok bool) {
	if !IsObjectRef(ref) {
		return "", "", false
	}
	remainder := strings.TrimPrefix(ref, ObjectScheme)
	idx := strings.Index(remainder, "/")
	if idx <= 0 || idx == len(remainder)-1 {
		return "", "", false
	}
	return remainder[:idx], remainder[idx+1:], true
}
