package ipc

import "podforge/internal/api"

// Episode mirrors the HTTP API episode DTO for internal IPC callers.
type Episode = api.Episode

// DaemonStatus mirrors the HTTP API status DTO.
type DaemonStatus = api.DaemonStatus

// GenerationReceipt mirrors the HTTP API submission receipt.
type GenerationReceipt = api.GenerationReceipt

// SubmitRequest carries a generation submission over IPC.
type SubmitRequest = api.SubmitGenerationRequest

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status snapshot.
type StatusResponse struct {
	Status DaemonStatus `json:"status"`
}

// SubmitResponse carries the submission receipt.
type SubmitResponse struct {
	Receipt GenerationReceipt `json:"receipt"`
}

// ListRequest filters episode listing by owner; empty matches all owners.
type ListRequest struct {
	Owner string `json:"owner"`
}

// ListResponse contains episodes newest first.
type ListResponse struct {
	Episodes []Episode `json:"episodes"`
}

// DescribeRequest fetches a single episode by id.
type DescribeRequest struct {
	ID string `json:"id"`
}

// DescribeResponse contains a single episode.
type DescribeResponse struct {
	Episode Episode `json:"episode"`
}

// DeleteRequest removes a single episode by id.
type DeleteRequest struct {
	ID string `json:"id"`
}

// DeleteResponse indicates whether the episode was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// LogTailRequest reads daemon log lines. A negative offset requests the last
// Limit lines; Follow with WaitMillis holds the call open until new lines
// arrive or the wait elapses.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
