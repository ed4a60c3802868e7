package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/lock"
	"github.com/foxseedlab/mensetsu/internal/metrics"
	"github.com/foxseedlab/mensetsu/internal/notification"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/webhook"
	"github.com/google/uuid"
)

const tokenBytes = 32

// Naive timestamps are read in the configured schedule time zone.
var localScheduleLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

type Manager struct {
	cfg        *config.Config
	repo       repository.Repository
	questions  llm.Generator
	scorer     llm.Generator
	dispatcher notification.Dispatcher
	webhook    webhook.Sender
	locker     lock.Locker
	now        func() time.Time
}

func NewManager(cfg *config.Config, repo repository.Repository, questions, scorer llm.Generator, dispatcher notification.Dispatcher, wh webhook.Sender, locker lock.Locker) *Manager {
	return &Manager{
		cfg:        cfg,
		repo:       repo,
		questions:  questions,
		scorer:     scorer,
		dispatcher: dispatcher,
		webhook:    wh,
		locker:     locker,
		now:        time.Now,
	}
}

type ScheduleInput struct {
	CandidateID string
	ScheduledAt string
}

type ScheduleResult struct {
	SessionID   string
	Token       string
	Link        string
	ScheduledAt time.Time
	ExpiresAt   time.Time
}

type ValidateResult struct {
	CandidateID   string
	SessionID     string
	ScheduledAt   time.Time
	ExpiresAt     time.Time
	StartedAt     time.Time
	QuestionCount int
	MaxQuestions  int
}

type NextInput struct {
	CandidateID string
	Answer      *string
}

type NextResult struct {
	Completed bool
	Question  string
	Current   int
	Total     int
}

type EvaluateInput struct {
	CandidateID string
	Answer      *string
}

// Schedule issues a fresh token for the candidate. Any previous session of the
// candidate is replaced and its progress discarded.
func (m *Manager) Schedule(ctx context.Context, in ScheduleInput) (*ScheduleResult, error) {
	candidateID := strings.TrimSpace(in.CandidateID)
	if candidateID == "" {
		return nil, ErrNotFound
	}
	now := m.now().UTC()
	scheduledAt, err := parseScheduledAt(in.ScheduledAt, m.cfg.ScheduleLocation())
	if err != nil {
		return nil, err
	}
	if !scheduledAt.After(now) {
		return nil, fmt.Errorf("%w: %s is not in the future", ErrInvalidSchedule, scheduledAt.Format(time.RFC3339))
	}

	unlock, err := m.lockCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	candidate, err := m.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	if candidate == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, candidateID)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	// Status first: if it fails, the previous session and its link stay intact.
	pending := &repository.Session{ID: sessionID, CandidateID: candidateID}
	if err := m.setCandidateStatus(ctx, pending, repository.CandidateStatusInterviewSent, now, nil); err != nil {
		return nil, err
	}

	sess, err := m.repo.UpsertSession(ctx, repository.UpsertSessionInput{
		ID:          sessionID,
		CandidateID: candidateID,
		Token:       token,
		ScheduledAt: scheduledAt,
		ExpiresAt:   scheduledAt.Add(m.cfg.SessionValidity()),
		Now:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	slog.Info("interview scheduled", "candidate_id", candidateID, "session_id", sess.ID, "scheduled_at", sess.ScheduledAt, "expires_at", sess.ExpiresAt)

	link := m.cfg.InterviewLink(token)
	m.notify(ctx, notification.Message{
		Kind:           notification.KindInterviewInvitation,
		CandidateID:    candidateID,
		RecipientEmail: candidate.Email,
		RecipientName:  candidate.Name,
		Link:           link,
		ScheduledAt:    sess.ScheduledAt,
		ValidFor:       m.cfg.SessionValidity(),
	})

	return &ScheduleResult{
		SessionID:   sess.ID,
		Token:       token,
		Link:        link,
		ScheduledAt: sess.ScheduledAt,
		ExpiresAt:   sess.ExpiresAt,
	}, nil
}

// Validate is the entry gate. The first successful call starts the interview;
// later calls inside the window are idempotent.
func (m *Manager) Validate(ctx context.Context, token string) (*ValidateResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidLink
	}
	found, err := m.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if found == nil {
		return nil, ErrInvalidLink
	}

	unlock, err := m.lockCandidate(ctx, found.CandidateID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; a reschedule may have replaced the token.
	sess, err := m.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil || !sess.IsActive {
		return nil, ErrInvalidLink
	}

	now := m.now().UTC()
	if now.Before(sess.ScheduledAt) {
		return nil, ErrNotYetStarted
	}
	if now.After(sess.ExpiresAt) || idle(sess, now, m.cfg.SessionIdleTimeout()) {
		if err := m.deactivate(ctx, sess, now, nil); err != nil {
			return nil, err
		}
		slog.Info("interview link expired", "candidate_id", sess.CandidateID, "session_id", sess.ID, "started", sess.StartedAt != nil)
		return nil, ErrLinkExpired
	}

	startedAt := now
	if sess.StartedAt != nil {
		startedAt = *sess.StartedAt
	} else {
		if err := m.setCandidateStatus(ctx, sess, repository.CandidateStatusInterviewStarted, now, nil); err != nil {
			return nil, err
		}
		if err := m.repo.MarkSessionStarted(ctx, repository.MarkStartedInput{SessionID: sess.ID, StartedAt: now}); err != nil {
			return nil, fmt.Errorf("failed to mark session started: %w", err)
		}
		slog.Info("interview started", "candidate_id", sess.CandidateID, "session_id", sess.ID)
	}

	return &ValidateResult{
		CandidateID:   sess.CandidateID,
		SessionID:     sess.ID,
		ScheduledAt:   sess.ScheduledAt,
		ExpiresAt:     sess.ExpiresAt,
		StartedAt:     startedAt,
		QuestionCount: sess.QuestionCount,
		MaxQuestions:  m.cfg.MaxQuestions,
	}, nil
}

// Next records the pending answer and, unless the question budget is spent,
// appends one generated question. Nothing is persisted when generation fails.
func (m *Manager) Next(ctx context.Context, in NextInput) (*NextResult, error) {
	unlock, err := m.lockCandidate(ctx, in.CandidateID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := m.now().UTC()
	sess, err := m.activeSession(ctx, in.CandidateID, now)
	if err != nil {
		return nil, err
	}

	turns := cloneTurns(sess.Transcript)
	answered := captureAnswer(turns, in.Answer)
	total := m.cfg.MaxQuestions

	if sess.QuestionCount >= total {
		if answered {
			if err := m.saveProgress(ctx, sess, sess.QuestionCount, turns, now); err != nil {
				return nil, err
			}
		}
		return &NextResult{Completed: true, Current: sess.QuestionCount, Total: total}, nil
	}

	if lastTurnPending(turns) {
		return &NextResult{Question: turns[len(turns)-1].Question, Current: sess.QuestionCount, Total: total}, nil
	}

	candidate, vacancy, err := m.loadContext(ctx, sess.CandidateID)
	if err != nil {
		return nil, err
	}
	number := sess.QuestionCount + 1
	raw, err := m.generate(ctx, m.questions, "question", buildQuestionPrompt(vacancy, candidate, turns, number, total))
	if err != nil {
		slog.Error("question generation failed", "candidate_id", sess.CandidateID, "session_id", sess.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	question := sanitizeQuestion(raw)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", ErrGenerationFailed)
	}

	turns = append(turns, repository.Turn{Question: question})
	if err := m.saveProgress(ctx, sess, number, turns, now); err != nil {
		return nil, err
	}
	slog.Debug("question issued", "candidate_id", sess.CandidateID, "session_id", sess.ID, "current", number, "total", total)

	return &NextResult{Question: question, Current: number, Total: total}, nil
}

// Evaluate scores the interview once and branches the candidate to
// recommended or rejected. Repeated calls return the stored record.
func (m *Manager) Evaluate(ctx context.Context, in EvaluateInput) (*repository.InterviewRecord, error) {
	unlock, err := m.lockCandidate(ctx, in.CandidateID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := m.now().UTC()
	sess, err := m.repo.GetSessionByCandidate(ctx, in.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	existing, err := m.repo.GetInterviewBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview: %w", err)
	}
	if existing != nil {
		// finalize only performs the transitions a previous call did not finish.
		if err := m.finalize(ctx, sess, existing, now); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err := m.ensureEvaluable(ctx, sess, now); err != nil {
		return nil, err
	}

	turns := cloneTurns(sess.Transcript)
	captureAnswer(turns, in.Answer)

	candidate, vacancy, err := m.loadContext(ctx, sess.CandidateID)
	if err != nil {
		return nil, err
	}
	ev := m.score(ctx, sess, vacancy, candidate, turns)

	startedAt := *sess.StartedAt
	record, err := m.repo.InsertInterview(ctx, repository.InterviewRecord{
		ID:                  uuid.NewString(),
		CandidateID:         sess.CandidateID,
		VacancyID:           candidate.VacancyID,
		SessionID:           sess.ID,
		Transcript:          turns,
		SkillScore:          ev.SkillScore,
		CommunicationScore:  ev.CommunicationScore,
		ProblemSolvingScore: ev.ProblemSolvingScore,
		CultureFitScore:     ev.CultureFitScore,
		OverallScore:        ev.OverallScore,
		Recommendation:      string(ev.Recommendation),
		EvaluationNotes:     ev.Notes,
		DurationMinutes:     durationMinutes(startedAt, now),
		StartedAt:           startedAt,
		CompletedAt:         now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store interview: %w", err)
	}
	slog.Info("interview evaluated", "candidate_id", sess.CandidateID, "session_id", sess.ID, "overall_score", record.OverallScore, "recommendation", record.Recommendation)

	if err := m.finalize(ctx, sess, record, now); err != nil {
		return nil, err
	}
	return record, nil
}

// Interview returns the most recent stored evaluation of the candidate.
func (m *Manager) Interview(ctx context.Context, candidateID string) (*repository.InterviewRecord, error) {
	record, err := m.repo.GetLatestInterviewByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interview: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: no interview for %s", ErrNotFound, candidateID)
	}
	return record, nil
}

// SweepExpired deactivates sessions whose entry window closed before the
// candidate ever validated. Started sessions are left alone.
func (m *Manager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.ExpireUnstartedSessions(ctx, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire sessions: %w", err)
	}
	metrics.ObserveExpiredSessions(n)
	if n > 0 {
		slog.Info("expired unstarted sessions", "count", n)
	}
	return n, nil
}

func (m *Manager) activeSession(ctx context.Context, candidateID string, now time.Time) (*repository.Session, error) {
	sess, err := m.repo.GetSessionByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	if err := m.ensureActive(ctx, sess, now); err != nil {
		return nil, err
	}
	return sess, nil
}

// ensureEvaluable accepts any started session, including one closed by expiry
// or idleness, so the answers already given can still be scored.
func (m *Manager) ensureEvaluable(ctx context.Context, sess *repository.Session, now time.Time) error {
	if sess.StartedAt != nil {
		return nil
	}
	return m.ensureActive(ctx, sess, now)
}

func (m *Manager) ensureActive(ctx context.Context, sess *repository.Session, now time.Time) error {
	switch DeriveStatus(sess, now) {
	case StatusCompleted:
		return ErrSessionInactive
	case StatusExpired:
		if sess.IsActive {
			if err := m.deactivate(ctx, sess, now, nil); err != nil {
				return err
			}
		}
		return ErrSessionInactive
	case StatusScheduled:
		return ErrSessionNotStarted
	}
	if idle(sess, now, m.cfg.SessionIdleTimeout()) {
		if err := m.deactivate(ctx, sess, now, nil); err != nil {
			return err
		}
		slog.Info("interview session went idle", "candidate_id", sess.CandidateID, "session_id", sess.ID)
		return ErrSessionInactive
	}
	return nil
}

func (m *Manager) finalize(ctx context.Context, sess *repository.Session, record *repository.InterviewRecord, now time.Time) error {
	if sess.IsActive || sess.CompletedAt == nil {
		completedAt := record.CompletedAt
		if err := m.deactivate(ctx, sess, now, &completedAt); err != nil {
			return err
		}
	}

	candidate, err := m.repo.GetCandidate(ctx, sess.CandidateID)
	if err != nil {
		return fmt.Errorf("failed to load candidate: %w", err)
	}
	if candidate == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, sess.CandidateID)
	}
	switch candidate.Status {
	case repository.CandidateStatusRecommended, repository.CandidateStatusRejected:
		return nil
	case repository.CandidateStatusInterviewed:
		slog.Warn("resuming interrupted finalization", "candidate_id", sess.CandidateID, "session_id", sess.ID)
	default:
		if err := m.setCandidateStatus(ctx, sess, repository.CandidateStatusInterviewed, now, record); err != nil {
			return err
		}
	}

	status := repository.CandidateStatusRejected
	msg := notification.Message{
		Kind:           notification.KindRejection,
		CandidateID:    candidate.ID,
		RecipientEmail: candidate.Email,
		RecipientName:  candidate.Name,
	}
	if record.OverallScore >= m.cfg.RecommendThreshold {
		status = repository.CandidateStatusRecommended
		msg.Kind = notification.KindFinalInterview
		msg.Link = m.cfg.FinalInterviewURL
	}
	if err := m.setCandidateStatus(ctx, sess, status, now, record); err != nil {
		return err
	}
	m.notify(ctx, msg)
	return nil
}

func (m *Manager) score(ctx context.Context, sess *repository.Session, vacancy *repository.Vacancy, candidate *repository.Candidate, turns []repository.Turn) Evaluation {
	raw, err := m.generate(ctx, m.scorer, "evaluation", buildEvaluationPrompt(vacancy, candidate, renderQAPairs(turns)))
	if err != nil {
		slog.Error("scoring failed; using fallback evaluation", "candidate_id", sess.CandidateID, "session_id", sess.ID, "error", err)
		metrics.ObserveEvaluationFallback()
		return FallbackEvaluation()
	}
	ev, fellBack := parseEvaluationOrFallback(raw)
	if fellBack {
		slog.Warn("could not parse scorer output; using fallback evaluation", "candidate_id", sess.CandidateID, "session_id", sess.ID, "response_length", len(raw))
		metrics.ObserveEvaluationFallback()
	}
	return ev
}

func (m *Manager) generate(ctx context.Context, gen llm.Generator, purpose, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AITimeout())
	defer cancel()
	start := time.Now()
	raw, err := gen.GenerateContent(ctx, prompt)
	metrics.ObserveLLMCall(purpose, err, time.Since(start))
	return raw, err
}

func (m *Manager) loadContext(ctx context.Context, candidateID string) (*repository.Candidate, *repository.Vacancy, error) {
	candidate, err := m.repo.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load candidate: %w", err)
	}
	if candidate == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, candidateID)
	}
	if candidate.VacancyID == "" {
		return candidate, nil, nil
	}
	vacancy, err := m.repo.GetVacancy(ctx, candidate.VacancyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load vacancy: %w", err)
	}
	return candidate, vacancy, nil
}

func (m *Manager) saveProgress(ctx context.Context, sess *repository.Session, count int, turns []repository.Turn, now time.Time) error {
	err := m.repo.SaveProgress(ctx, repository.SaveProgressInput{
		CandidateID:           sess.CandidateID,
		ExpectedQuestionCount: sess.QuestionCount,
		QuestionCount:         count,
		Transcript:            turns,
		Now:                   now,
	})
	if errors.Is(err, repository.ErrConflict) {
		return ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (m *Manager) deactivate(ctx context.Context, sess *repository.Session, now time.Time, completedAt *time.Time) error {
	if err := m.repo.DeactivateSession(ctx, repository.DeactivateSessionInput{
		SessionID:   sess.ID,
		CompletedAt: completedAt,
		Now:         now,
	}); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

func (m *Manager) setCandidateStatus(ctx context.Context, sess *repository.Session, status repository.CandidateStatus, now time.Time, record *repository.InterviewRecord) error {
	if err := m.repo.UpdateCandidateStatus(ctx, repository.UpdateCandidateStatusInput{
		CandidateID: sess.CandidateID,
		Status:      status,
		Now:         now,
	}); err != nil {
		return fmt.Errorf("failed to update candidate status to %s: %w", status, err)
	}
	metrics.ObserveTransition(string(status))
	if err := m.webhook.SendStatusChange(ctx, buildStatusChangePayload(sess, status, now, record)); err != nil {
		slog.Error("failed to send status webhook", "candidate_id", sess.CandidateID, "status", status, "error", err)
	}
	return nil
}

func (m *Manager) notify(ctx context.Context, msg notification.Message) {
	if err := m.dispatcher.Send(ctx, msg); err != nil {
		slog.Error("failed to send notification", "candidate_id", msg.CandidateID, "kind", msg.Kind, "error", err)
	}
}

func (m *Manager) lockCandidate(ctx context.Context, candidateID string) (func(), error) {
	unlock, err := m.locker.Lock(ctx, "candidate:"+candidateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConcurrentUpdate, err)
	}
	return unlock, nil
}

func parseScheduledAt(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidSchedule)
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localScheduleLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidSchedule, raw)
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
