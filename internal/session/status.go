package session

import (
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
)

type Status int

const (
	StatusScheduled Status = iota
	StatusInProgress
	StatusCompleted
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Terminal reports whether the session can no longer be entered or advanced.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// DeriveStatus is the only place that interprets is_active, the timestamps and
// the counters of a session row. A never-started session past expires_at is
// Expired even before the row has been deactivated.
func DeriveStatus(s *repository.Session, now time.Time) Status {
	switch {
	case !s.IsActive && s.CompletedAt != nil:
		return StatusCompleted
	case !s.IsActive:
		return StatusExpired
	case s.StartedAt == nil && now.After(s.ExpiresAt):
		return StatusExpired
	case s.StartedAt == nil:
		return StatusScheduled
	default:
		return StatusInProgress
	}
}

// idle reports whether an in-progress session has gone without activity for
// longer than timeout. A zero timeout disables the check.
func idle(s *repository.Session, now time.Time, timeout time.Duration) bool {
	if timeout <= 0 || s.StartedAt == nil {
		return false
	}
	last := *s.StartedAt
	if s.UpdatedAt.After(last) {
		last = s.UpdatedAt
	}
	return now.Sub(last) > timeout
}
