package httpapi

import (
	"time"

	"github.com/foxseedlab/mensetsu/internal/repository"
)

type scheduleRequest struct {
	CandidateID string `json:"candidate_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type scheduleResponse struct {
	Success       bool      `json:"success"`
	SessionID     string    `json:"session_id"`
	InterviewLink string    `json:"interview_link"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Success       bool      `json:"success"`
	CandidateID   string    `json:"candidate_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	QuestionCount int       `json:"question_count"`
	MaxQuestions  int       `json:"max_questions"`
}

// answerRequest is shared by next and evaluate. A missing answer is distinct
// from an empty one.
type answerRequest struct {
	CandidateID string  `json:"candidate_id"`
	Answer      *string `json:"answer"`
}

type nextResponse struct {
	Completed bool   `json:"completed"`
	Question  string `json:"question,omitempty"`
	Current   int    `json:"current,omitempty"`
	Total     int    `json:"total,omitempty"`
}

type evaluationBody struct {
	SkillScore          float64 `json:"skill_score"`
	CommunicationScore  float64 `json:"communication_score"`
	ProblemSolvingScore float64 `json:"problem_solving_score"`
	CultureFitScore     float64 `json:"culture_fit_score"`
	OverallScore        float64 `json:"overall_score"`
	Recommendation      string  `json:"recommendation"`
	EvaluationNotes     string  `json:"evaluation_notes"`
	DurationMinutes     int     `json:"duration_minutes"`
}

type evaluateResponse struct {
	Success    bool           `json:"success"`
	Evaluation evaluationBody `json:"evaluation"`
}

type turnBody struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

type interviewBody struct {
	ID          string     `json:"id"`
	CandidateID string     `json:"candidate_id"`
	SessionID   string     `json:"session_id"`
	Transcript  []turnBody `json:"transcript"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	evaluationBody
}

type interviewResponse struct {
	Success   bool          `json:"success"`
	Interview interviewBody `json:"interview"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Detail  string `json:"detail"`
}

func toEvaluationBody(r *repository.InterviewRecord) evaluationBody {
	return evaluationBody{
		SkillScore:          r.SkillScore,
		CommunicationScore:  r.CommunicationScore,
		ProblemSolvingScore: r.ProblemSolvingScore,
		CultureFitScore:     r.CultureFitScore,
		OverallScore:        r.OverallScore,
		Recommendation:      r.Recommendation,
		EvaluationNotes:     r.EvaluationNotes,
		DurationMinutes:     r.DurationMinutes,
	}
}

func toInterviewBody(r *repository.InterviewRecord) interviewBody {
	turns := make([]turnBody, 0, len(r.Transcript))
	for _, t := range r.Transcript {
		turns = append(turns, turnBody{Question: t.Question, Answer: t.Answer})
	}
	return interviewBody{
		ID:             r.ID,
		CandidateID:    r.CandidateID,
		SessionID:      r.SessionID,
		Transcript:     turns,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		evaluationBody: toEvaluationBody(r),
	}
}
