package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE candidate_status AS ENUM (
		'new', 'screened', 'form_sent', 'form_completed', 'interview_sent',
		'interview_started', 'interviewed', 'recommended', 'rejected'
	); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS vacancies (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		job_role TEXT NOT NULL,
		required_skills TEXT[] NOT NULL DEFAULT '{}',
		experience_level TEXT NOT NULL DEFAULT '',
		culture_traits TEXT[] NOT NULL DEFAULT '{}',
		description TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS candidates (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		vacancy_id UUID REFERENCES vacancies(id) ON DELETE SET NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		resume_text TEXT,
		skills TEXT[] NOT NULL DEFAULT '{}',
		experience_years DOUBLE PRECISION,
		screening_score DOUBLE PRECISION,
		status candidate_status NOT NULL DEFAULT 'new',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ai_interview_sessions (
		id UUID PRIMARY KEY,
		candidate_id UUID NOT NULL UNIQUE REFERENCES candidates(id) ON DELETE CASCADE,
		interview_token TEXT NOT NULL UNIQUE,
		scheduled_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		question_count INTEGER NOT NULL DEFAULT 0,
		transcript JSONB NOT NULL DEFAULT '[]'::jsonb,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (question_count >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_interview_sessions_unstarted ON ai_interview_sessions (expires_at) WHERE is_active AND started_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS ai_interviews (
		id UUID PRIMARY KEY,
		candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		vacancy_id UUID,
		session_id UUID NOT NULL UNIQUE,
		interview_transcript JSONB NOT NULL,
		skill_score DOUBLE PRECISION NOT NULL,
		communication_score DOUBLE PRECISION NOT NULL,
		problem_solving_score DOUBLE PRECISION NOT NULL,
		culture_fit_score DOUBLE PRECISION NOT NULL,
		overall_score DOUBLE PRECISION NOT NULL,
		recommendation TEXT NOT NULL,
		evaluation_notes TEXT NOT NULL DEFAULT '',
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ai_interviews_candidate ON ai_interviews (candidate_id, completed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS email_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		candidate_id UUID,
		email_type TEXT NOT NULL,
		recipient_email TEXT NOT NULL,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		sendgrid_message_id TEXT,
		sent_at TIMESTAMPTZ NOT NULL
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
