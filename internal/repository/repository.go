package repository

import (
	"context"
	"errors"
	"time"
)

// ErrConflict is returned by conditional updates when the stored row no longer
// matches the caller's observed state.
var ErrConflict = errors.New("repository: conditional update conflict")

type UpsertSessionInput struct {
	ID          string
	CandidateID string
	Token       string
	ScheduledAt time.Time
	ExpiresAt   time.Time
	Now         time.Time
}

type SaveProgressInput struct {
	CandidateID           string
	ExpectedQuestionCount int
	QuestionCount         int
	Transcript            []Turn
	Now                   time.Time
}

type MarkStartedInput struct {
	SessionID string
	StartedAt time.Time
}

type DeactivateSessionInput struct {
	SessionID   string
	CompletedAt *time.Time
	Now         time.Time
}

type UpdateCandidateStatusInput struct {
	CandidateID string
	Status      CandidateStatus
	Now         time.Time
}

type SessionRepository interface {
	// UpsertSession creates or replaces the candidate's session, resetting progress.
	UpsertSession(ctx context.Context, input UpsertSessionInput) (*Session, error)
	GetSessionByCandidate(ctx context.Context, candidateID string) (*Session, error)
	GetSessionByToken(ctx context.Context, token string) (*Session, error)
	MarkSessionStarted(ctx context.Context, input MarkStartedInput) error
	// SaveProgress fails with ErrConflict when question_count moved or the session went inactive.
	SaveProgress(ctx context.Context, input SaveProgressInput) error
	DeactivateSession(ctx context.Context, input DeactivateSessionInput) error
	ExpireUnstartedSessions(ctx context.Context, now time.Time) (int64, error)
}

type CandidateRepository interface {
	GetCandidate(ctx context.Context, candidateID string) (*Candidate, error)
	GetVacancy(ctx context.Context, vacancyID string) (*Vacancy, error)
	UpdateCandidateStatus(ctx context.Context, input UpdateCandidateStatusInput) error
}

type InterviewRepository interface {
	InsertInterview(ctx context.Context, record InterviewRecord) (*InterviewRecord, error)
	GetInterviewBySession(ctx context.Context, sessionID string) (*InterviewRecord, error)
	GetLatestInterviewByCandidate(ctx context.Context, candidateID string) (*InterviewRecord, error)
}

type EmailLogRepository interface {
	InsertEmailLog(ctx context.Context, entry EmailLog) error
}

type Repository interface {
	SessionRepository
	CandidateRepository
	InterviewRepository
	EmailLogRepository
}
