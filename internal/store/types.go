package store

import "time"

// Session is one watch session as recorded by the journal.
type Session struct {
	ID            int64
	Root          string
	ExclusionRoot string
	StartedAt     time.Time
	EndedAt       *time.Time // nil while running or after a crash
	ErrorCode     string     // set when the watch failed to start
	ErrorMessage  string
}

// Batch is one delivered change notification.
type Batch struct {
	ID            int64
	SessionID     int64
	DeliveredAt   time.Time
	PathCount     int
	GitDirChanged bool
}
