package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/metrics"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Interviews is the part of *session.Manager the HTTP surface drives.
type Interviews interface {
	Schedule(ctx context.Context, in session.ScheduleInput) (*session.ScheduleResult, error)
	Validate(ctx context.Context, token string) (*session.ValidateResult, error)
	Next(ctx context.Context, in session.NextInput) (*session.NextResult, error)
	Evaluate(ctx context.Context, in session.EvaluateInput) (*repository.InterviewRecord, error)
	Interview(ctx context.Context, candidateID string) (*repository.InterviewRecord, error)
}

type Handler struct {
	interviews Interviews
	now        func() time.Time
}

func NewHandler(interviews Interviews) *Handler {
	return &Handler{interviews: interviews, now: time.Now}
}

func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID, middleware.RealIP, metrics.Middleware, middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/interviews", func(r chi.Router) {
		r.Post("/schedule", h.Schedule)
		r.Get("/{candidate_id}", h.Interview)
	})
	r.Route("/ai-interview", func(r chi.Router) {
		r.Post("/validate", h.Validate)
		r.Post("/next", h.Next)
		r.Post("/evaluate", h.Evaluate)
	})
	return r
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Timestamp: h.now().UTC()})
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireFields(map[string]string{"candidate_id": req.CandidateID, "scheduled_at": req.ScheduledAt}); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.interviews.Schedule(r.Context(), session.ScheduleInput{CandidateID: req.CandidateID, ScheduledAt: req.ScheduledAt})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{
		Success:       true,
		SessionID:     res.SessionID,
		InterviewLink: res.Link,
		ScheduledAt:   res.ScheduledAt,
		ExpiresAt:     res.ExpiresAt,
	})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireFields(map[string]string{"token": req.Token}); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.interviews.Validate(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Success:       true,
		CandidateID:   res.CandidateID,
		ExpiresAt:     res.ExpiresAt,
		QuestionCount: res.QuestionCount,
		MaxQuestions:  res.MaxQuestions,
	})
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnswer(w, r)
	if !ok {
		return
	}

	res, err := h.interviews.Next(r.Context(), session.NextInput{CandidateID: req.CandidateID, Answer: req.Answer})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nextResponse{
		Completed: res.Completed,
		Question:  res.Question,
		Current:   res.Current,
		Total:     res.Total,
	})
}

func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAnswer(w, r)
	if !ok {
		return
	}

	record, err := h.interviews.Evaluate(r.Context(), session.EvaluateInput{CandidateID: req.CandidateID, Answer: req.Answer})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Success: true, Evaluation: toEvaluationBody(record)})
}

func (h *Handler) Interview(w http.ResponseWriter, r *http.Request) {
	record, err := h.interviews.Interview(r.Context(), chi.URLParam(r, "candidate_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interviewResponse{Success: true, Interview: toInterviewBody(record)})
}

func (h *Handler) decodeAnswer(w http.ResponseWriter, r *http.Request) (answerRequest, bool) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return req, false
	}
	if err := requireFields(map[string]string{"candidate_id": req.CandidateID}); err != nil {
		writeError(w, r, err)
		return req, false
	}
	return req, true
}

func requireFields(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: %s", errMissingField, strings.Join(missing, ", "))
}
