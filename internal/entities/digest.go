package entities

import "time"

// DigestReport aggregates one day of bot activity. WindowKey is the date of
// the covered window (e.g. "2026-08-24") and is unique: re-running the job
// for an already-reported window is a no-op.
type DigestReport struct {
	ID            int64     `json:"id"`
	WindowKey     string    `json:"window_key"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	AutoResolved  int       `json:"auto_resolved"`
	Escalated     int       `json:"escalated"`
	Pending       int       `json:"pending"`
	Conversations int       `json:"conversations"`
	Messages      int       `json:"messages"`
	Body          string    `json:"body"`
	GeneratedAt   time.Time `json:"generated_at"`
}
