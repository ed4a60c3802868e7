package session

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

const pendingAnswerText = "(awaiting answer)"

// renderQAPairs formats the answered turns for the scorer. Pending turns are left out.
func renderQAPairs(turns []repository.Turn) string {
	pairs := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Answer == nil {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("Q: %s\nA: %s", t.Question, *t.Answer))
	}
	return strings.Join(pairs, "\n\n")
}

// renderConversation formats every turn for the question prompt so the model
// can see which questions were already asked.
func renderConversation(turns []repository.Turn) string {
	if len(turns) == 0 {
		return "(no questions asked yet)"
	}
	lines := make([]string, 0, len(turns))
	for i, t := range turns {
		answer := pendingAnswerText
		if t.Answer != nil {
			answer = *t.Answer
		}
		lines = append(lines, fmt.Sprintf("Q%d: %s\nA%d: %s", i+1, t.Question, i+1, answer))
	}
	return strings.Join(lines, "\n\n")
}

func cloneTurns(turns []repository.Turn) []repository.Turn {
	out := make([]repository.Turn, len(turns))
	for i, t := range turns {
		out[i] = repository.Turn{Question: t.Question}
		if t.Answer != nil {
			a := *t.Answer
			out[i].Answer = &a
		}
	}
	return out
}

// captureAnswer writes answer onto the last turn only, replacing any earlier
// submission. It reports whether the transcript changed.
func captureAnswer(turns []repository.Turn, answer *string) bool {
	if answer == nil || len(turns) == 0 {
		return false
	}
	a := strings.TrimSpace(*answer)
	last := &turns[len(turns)-1]
	if last.Answer != nil && *last.Answer == a {
		return false
	}
	last.Answer = &a
	return true
}

func lastTurnPending(turns []repository.Turn) bool {
	return len(turns) > 0 && turns[len(turns)-1].Answer == nil
}

func durationMinutes(startedAt, completedAt time.Time) int {
	d := completedAt.Sub(startedAt)
	if d < 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

func buildStatusChangePayload(s *repository.Session, status repository.CandidateStatus, occurredAt time.Time, record *repository.InterviewRecord) webhook.StatusChangePayload {
	payload := webhook.StatusChangePayload{
		SchemaVersion: webhook.StatusChangeSchemaVersion,
		CandidateID:   s.CandidateID,
		SessionID:     s.ID,
		Status:        string(status),
		OccurredAt:    occurredAt.UTC().Format(time.RFC3339),
	}
	if record == nil {
		return payload
	}
	payload.Evaluation = &webhook.EvaluationSummary{
		OverallScore:    record.OverallScore,
		Recommendation:  record.Recommendation,
		DurationMinutes: record.DurationMinutes,
	}
	payload.Transcript = make([]webhook.StatusChangeTurn, 0, len(record.Transcript))
	for i, t := range record.Transcript {
		turn := webhook.StatusChangeTurn{Index: i + 1, Question: t.Question}
		if t.Answer != nil {
			turn.Answer = *t.Answer
		}
		payload.Transcript = append(payload.Transcript, turn)
	}
	return payload
}
