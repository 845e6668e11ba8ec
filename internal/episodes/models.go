package episodes

import (
	"strings"
	"time"
)

// Episode is a generation target persisted in SQLite.
//
// Name is not globally unique; the pair (Name, Owner) is unique only by
// best-effort lookup at reconciliation time, not by constraint. Owner and
// CreatedAt are immutable after creation. JobRef is set at most once via
// Store.ClaimJobRef; AudioRef transitions empty to set exactly once under
// normal operation.
type Episode struct {
	ID             string
	Name           string
	Owner          string
	EpisodeProfile string
	SpeakerProfile string
	Briefing       string
	Content        string
	JobRef         string
	AudioRef       string
	Transcript     string
	Outline        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasAudio reports whether synthesis output has been attached.
func (e *Episode) HasAudio() bool {
	return e != nil && strings.TrimSpace(e.AudioRef) != ""
}

// HasJobRef reports whether an executor job has been linked.
func (e *Episode) HasJobRef() bool {
	return e != nil && strings.TrimSpace(e.JobRef) != ""
}
