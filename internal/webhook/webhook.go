package webhook

import (
	"context"
	"errors"
)

const StatusChangeSchemaVersion = "2026-10-01"

// StatusChangePayload is posted whenever the interview flow moves a candidate
// to a new pipeline status.
type StatusChangePayload struct {
	SchemaVersion string             `json:"schema_version"`
	CandidateID   string             `json:"candidate_id"`
	SessionID     string             `json:"session_id,omitempty"`
	Status        string             `json:"status"`
	OccurredAt    string             `json:"occurred_at"`
	Evaluation    *EvaluationSummary `json:"evaluation,omitempty"`
	Transcript    []StatusChangeTurn `json:"transcript,omitempty"`
}

type EvaluationSummary struct {
	OverallScore    float64 `json:"overall_score"`
	Recommendation  string  `json:"recommendation"`
	DurationMinutes int     `json:"duration_minutes"`
}

type StatusChangeTurn struct {
	Index    int    `json:"index"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

type Sender interface {
	SendStatusChange(ctx context.Context, payload StatusChangePayload) error
}

const (
	HTTPSenderName         = "webhook.http"
	DiscordAlertSenderName = "webhook.discord-alert"
)

// Fanout delivers a payload to every sender and joins their failures.
type Fanout []Sender

func (f Fanout) SendStatusChange(ctx context.Context, payload StatusChangePayload) error {
	var errs []error
	for _, s := range f {
		if err := s.SendStatusChange(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
