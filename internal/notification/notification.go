package notification

import (
	"context"
	"time"
)

type Kind string

const (
	KindInterviewInvitation Kind = "interview_invite"
	KindFinalInterview      Kind = "schedule_confirmation"
	KindRejection           Kind = "rejection"
)

type Message struct {
	Kind           Kind
	CandidateID    string
	RecipientEmail string
	RecipientName  string
	Link           string
	// ScheduledAt and ValidFor are only meaningful for invitations.
	ScheduledAt time.Time
	ValidFor    time.Duration
}

// Dispatcher delivers candidate-facing notifications. Callers treat failures as
// best effort: they are logged and never undo a state transition.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
