package models

import "time"

// RefreshSchedule is a point-in-time view of the refresh scheduler. It
// is transient state, surfaced for logs and health reports only, and is
// never persisted.
type RefreshSchedule struct {
	NextWakeAt          time.Time `json:"next_wake_at"`
	IsPaused            bool      `json:"is_paused"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}
