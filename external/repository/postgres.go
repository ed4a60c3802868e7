package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, candidate_id, interview_token, scheduled_at, expires_at, started_at, completed_at,
	question_count, transcript, is_active, created_at, updated_at`

const interviewColumns = `id, candidate_id, COALESCE(vacancy_id::text, ''), session_id, interview_transcript,
	skill_score, communication_score, problem_solving_score, culture_fit_score, overall_score,
	recommendation, evaluation_notes, duration_minutes, started_at, completed_at, created_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) UpsertSession(ctx context.Context, input repository.UpsertSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO ai_interview_sessions (id, candidate_id, interview_token, scheduled_at, expires_at,
			question_count, transcript, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, '[]'::jsonb, TRUE, $6, $6)
		 ON CONFLICT (candidate_id) DO UPDATE SET
			id = EXCLUDED.id,
			interview_token = EXCLUDED.interview_token,
			scheduled_at = EXCLUDED.scheduled_at,
			expires_at = EXCLUDED.expires_at,
			started_at = NULL,
			completed_at = NULL,
			question_count = 0,
			transcript = '[]'::jsonb,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
		 RETURNING `+sessionColumns,
		input.ID, input.CandidateID, input.Token, input.ScheduledAt, input.ExpiresAt, input.Now)
	return scanSession(row)
}

func (r *PostgresRepository) GetSessionByCandidate(ctx context.Context, candidateID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM ai_interview_sessions WHERE candidate_id = $1`,
		candidateID)
	return nilOnNoRows(scanSession(row))
}

func (r *PostgresRepository) GetSessionByToken(ctx context.Context, token string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM ai_interview_sessions WHERE interview_token = $1`,
		token)
	return nilOnNoRows(scanSession(row))
}

func (r *PostgresRepository) MarkSessionStarted(ctx context.Context, input repository.MarkStartedInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_interview_sessions SET started_at = COALESCE(started_at, $2), updated_at = $2 WHERE id = $1`,
		input.SessionID, input.StartedAt)
	return err
}

func (r *PostgresRepository) SaveProgress(ctx context.Context, input repository.SaveProgressInput) error {
	transcript, err := json.Marshal(nonNilTurns(input.Transcript))
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE ai_interview_sessions
		 SET question_count = $3, transcript = $4::jsonb, updated_at = $5
		 WHERE candidate_id = $1 AND question_count = $2 AND is_active`,
		input.CandidateID, input.ExpectedQuestionCount, input.QuestionCount, string(transcript), input.Now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *PostgresRepository) DeactivateSession(ctx context.Context, input repository.DeactivateSessionInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ai_interview_sessions
		 SET is_active = FALSE, completed_at = COALESCE($2, completed_at), updated_at = $3
		 WHERE id = $1`,
		input.SessionID, input.CompletedAt, input.Now)
	return err
}

func (r *PostgresRepository) ExpireUnstartedSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE ai_interview_sessions SET is_active = FALSE, updated_at = $1
		 WHERE is_active AND started_at IS NULL AND expires_at < $1`,
		now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) GetCandidate(ctx context.Context, candidateID string) (*repository.Candidate, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, COALESCE(vacancy_id::text, ''), name, email, COALESCE(resume_text, ''), skills,
			experience_years, screening_score, status
		 FROM candidates WHERE id = $1`,
		candidateID)
	var c repository.Candidate
	var status string
	err := row.Scan(&c.ID, &c.VacancyID, &c.Name, &c.Email, &c.ResumeText, &c.Skills,
		&c.ExperienceYears, &c.ScreeningScore, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Status = repository.CandidateStatus(status)
	return &c, nil
}

func (r *PostgresRepository) GetVacancy(ctx context.Context, vacancyID string) (*repository.Vacancy, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, job_role, required_skills, experience_level, culture_traits, COALESCE(description, '')
		 FROM vacancies WHERE id = $1`,
		vacancyID)
	var v repository.Vacancy
	err := row.Scan(&v.ID, &v.JobRole, &v.RequiredSkills, &v.ExperienceLevel, &v.CultureTraits, &v.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PostgresRepository) UpdateCandidateStatus(ctx context.Context, input repository.UpdateCandidateStatusInput) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE candidates SET status = $2::candidate_status, updated_at = $3 WHERE id = $1`,
		input.CandidateID, string(input.Status), input.Now)
	return err
}

func (r *PostgresRepository) InsertInterview(ctx context.Context, record repository.InterviewRecord) (*repository.InterviewRecord, error) {
	transcript, err := json.Marshal(nonNilTurns(record.Transcript))
	if err != nil {
		return nil, fmt.Errorf("marshal transcript: %w", err)
	}
	var vacancyID *string
	if record.VacancyID != "" {
		vacancyID = &record.VacancyID
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO ai_interviews (id, candidate_id, vacancy_id, session_id, interview_transcript,
			skill_score, communication_score, problem_solving_score, culture_fit_score, overall_score,
			recommendation, evaluation_notes, duration_minutes, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING `+interviewColumns,
		record.ID, record.CandidateID, vacancyID, record.SessionID, string(transcript),
		record.SkillScore, record.CommunicationScore, record.ProblemSolvingScore, record.CultureFitScore, record.OverallScore,
		record.Recommendation, record.EvaluationNotes, record.DurationMinutes, record.StartedAt, record.CompletedAt)
	return scanInterview(row)
}

func (r *PostgresRepository) GetInterviewBySession(ctx context.Context, sessionID string) (*repository.InterviewRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM ai_interviews WHERE session_id = $1`,
		sessionID)
	return nilOnNoRows(scanInterview(row))
}

func (r *PostgresRepository) GetLatestInterviewByCandidate(ctx context.Context, candidateID string) (*repository.InterviewRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+interviewColumns+` FROM ai_interviews WHERE candidate_id = $1
		 ORDER BY completed_at DESC LIMIT 1`,
		candidateID)
	return nilOnNoRows(scanInterview(row))
}

func (r *PostgresRepository) InsertEmailLog(ctx context.Context, entry repository.EmailLog) error {
	var candidateID, messageID *string
	if entry.CandidateID != "" {
		candidateID = &entry.CandidateID
	}
	if entry.ProviderMessageID != "" {
		messageID = &entry.ProviderMessageID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO email_logs (candidate_id, email_type, recipient_email, subject, status, sendgrid_message_id, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		candidateID, entry.EmailType, entry.RecipientEmail, entry.Subject, string(entry.Status), messageID, entry.SentAt)
	return err
}

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var transcript []byte
	err := row.Scan(&s.ID, &s.CandidateID, &s.Token, &s.ScheduledAt, &s.ExpiresAt, &s.StartedAt, &s.CompletedAt,
		&s.QuestionCount, &transcript, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeTurns(transcript, &s.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript of session %s: %w", s.ID, err)
	}
	return &s, nil
}

func scanInterview(row pgx.Row) (*repository.InterviewRecord, error) {
	var rec repository.InterviewRecord
	var transcript []byte
	err := row.Scan(&rec.ID, &rec.CandidateID, &rec.VacancyID, &rec.SessionID, &transcript,
		&rec.SkillScore, &rec.CommunicationScore, &rec.ProblemSolvingScore, &rec.CultureFitScore, &rec.OverallScore,
		&rec.Recommendation, &rec.EvaluationNotes, &rec.DurationMinutes, &rec.StartedAt, &rec.CompletedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := decodeTurns(transcript, &rec.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript of interview %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func nilOnNoRows[T any](v *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func decodeTurns(raw []byte, dst *[]repository.Turn) error {
	if len(raw) == 0 {
		*dst = []repository.Turn{}
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nonNilTurns(turns []repository.Turn) []repository.Turn {
	if turns == nil {
		return []repository.Turn{}
	}
	return turns
}
