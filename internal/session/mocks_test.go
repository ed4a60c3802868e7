package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/notification"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

type mockRepository struct {
	mu         sync.Mutex
	sessions   map[string]*repository.Session
	candidates map[string]*repository.Candidate
	vacancies  map[string]*repository.Vacancy
	interviews []repository.InterviewRecord
	statuses   map[string][]repository.CandidateStatus
	saveCalls  int
	saveErr    error
	statusErr  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sessions:   make(map[string]*repository.Session),
		candidates: make(map[string]*repository.Candidate),
		vacancies:  make(map[string]*repository.Vacancy),
		statuses:   make(map[string][]repository.CandidateStatus),
	}
}

func (m *mockRepository) addCandidate(c repository.Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates[c.ID] = &c
}

func (m *mockRepository) addVacancy(v repository.Vacancy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vacancies[v.ID] = &v
}

func (m *mockRepository) putSession(s repository.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.CandidateID] = copySession(&s)
}

func (m *mockRepository) session(candidateID string) *repository.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[candidateID]
	if !ok {
		return nil
	}
	return copySession(s)
}

func (m *mockRepository) statusHistory(candidateID string) []repository.CandidateStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.CandidateStatus(nil), m.statuses[candidateID]...)
}

func copySession(s *repository.Session) *repository.Session {
	out := *s
	out.Transcript = cloneTurns(s.Transcript)
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

func (m *mockRepository) sessionByID(id string) *repository.Session {
	for _, s := range m.sessions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *mockRepository) UpsertSession(_ context.Context, input repository.UpsertSessionInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &repository.Session{
		ID:          input.ID,
		CandidateID: input.CandidateID,
		Token:       input.Token,
		ScheduledAt: input.ScheduledAt,
		ExpiresAt:   input.ExpiresAt,
		Transcript:  []repository.Turn{},
		IsActive:    true,
		CreatedAt:   input.Now,
		UpdatedAt:   input.Now,
	}
	m.sessions[input.CandidateID] = s
	return copySession(s), nil
}

func (m *mockRepository) GetSessionByCandidate(_ context.Context, candidateID string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[candidateID]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (m *mockRepository) GetSessionByToken(_ context.Context, token string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token {
			return copySession(s), nil
		}
	}
	return nil, nil
}

func (m *mockRepository) MarkSessionStarted(_ context.Context, input repository.MarkStartedInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionByID(input.SessionID)
	if s == nil {
		return fmt.Errorf("session %s not found", input.SessionID)
	}
	if s.StartedAt == nil {
		t := input.StartedAt
		s.StartedAt = &t
	}
	s.UpdatedAt = input.StartedAt
	return nil
}

func (m *mockRepository) SaveProgress(_ context.Context, input repository.SaveProgressInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	s, ok := m.sessions[input.CandidateID]
	if !ok || !s.IsActive || s.QuestionCount != input.ExpectedQuestionCount {
		return repository.ErrConflict
	}
	s.QuestionCount = input.QuestionCount
	s.Transcript = cloneTurns(input.Transcript)
	s.UpdatedAt = input.Now
	m.saveCalls++
	return nil
}

func (m *mockRepository) DeactivateSession(_ context.Context, input repository.DeactivateSessionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessionByID(input.SessionID)
	if s == nil {
		return fmt.Errorf("session %s not found", input.SessionID)
	}
	s.IsActive = false
	if input.CompletedAt != nil {
		t := *input.CompletedAt
		s.CompletedAt = &t
	}
	s.UpdatedAt = input.Now
	return nil
}

func (m *mockRepository) ExpireUnstartedSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.IsActive && s.StartedAt == nil && s.ExpiresAt.Before(now) {
			s.IsActive = false
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *mockRepository) GetCandidate(_ context.Context, candidateID string) (*repository.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.candidates[candidateID]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *mockRepository) GetVacancy(_ context.Context, vacancyID string) (*repository.Vacancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vacancies[vacancyID]
	if !ok {
		return nil, nil
	}
	out := *v
	return &out, nil
}

func (m *mockRepository) UpdateCandidateStatus(_ context.Context, input repository.UpdateCandidateStatusInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statuses[input.CandidateID] = append(m.statuses[input.CandidateID], input.Status)
	if c, ok := m.candidates[input.CandidateID]; ok {
		c.Status = input.Status
	}
	return nil
}

func (m *mockRepository) InsertInterview(_ context.Context, record repository.InterviewRecord) (*repository.InterviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.interviews {
		if r.SessionID == record.SessionID {
			return nil, fmt.Errorf("duplicate interview for session %s", record.SessionID)
		}
	}
	record.Transcript = cloneTurns(record.Transcript)
	record.CreatedAt = record.CompletedAt
	m.interviews = append(m.interviews, record)
	out := record
	return &out, nil
}

func (m *mockRepository) GetInterviewBySession(_ context.Context, sessionID string) (*repository.InterviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.interviews {
		if r.SessionID == sessionID {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) GetLatestInterviewByCandidate(_ context.Context, candidateID string) (*repository.InterviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.interviews) - 1; i >= 0; i-- {
		if m.interviews[i].CandidateID == candidateID {
			out := m.interviews[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) InsertEmailLog(_ context.Context, _ repository.EmailLog) error {
	return nil
}

type mockGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *mockGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) > 0 {
		r := g.responses[0]
		g.responses = g.responses[1:]
		return r, nil
	}
	return fmt.Sprintf("Question %d?", g.calls), nil
}

func (g *mockGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *mockGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type mockDispatcher struct {
	mu       sync.Mutex
	messages []notification.Message
	err      error
}

func (d *mockDispatcher) Send(_ context.Context, msg notification.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return d.err
}

func (d *mockDispatcher) kinds() []notification.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notification.Kind, 0, len(d.messages))
	for _, msg := range d.messages {
		out = append(out, msg.Kind)
	}
	return out
}

type mockWebhookSender struct {
	mu       sync.Mutex
	payloads []webhook.StatusChangePayload
	err      error
}

func (w *mockWebhookSender) SendStatusChange(_ context.Context, payload webhook.StatusChangePayload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.payloads = append(w.payloads, payload)
	return w.err
}

type mockLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *mockLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	km, ok := l.locks[key]
	if !ok {
		km = &sync.Mutex{}
		l.locks[key] = km
	}
	l.mu.Unlock()
	km.Lock()
	var once sync.Once
	return func() { once.Do(km.Unlock) }, nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	manager    *Manager
	cfg        *config.Config
	repo       *mockRepository
	questions  *mockGenerator
	scorer     *mockGenerator
	dispatcher *mockDispatcher
	webhook    *mockWebhookSender
	clock      *testClock
}

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		MaxQuestions:       5,
		SessionValidityMin: 60,
		RecommendThreshold: 80,
		ScheduleTimezone:   "Asia/Kolkata",
		AITimeoutSec:       5,
		LockTTLSec:         10,
		InterviewUIURL:     "https://interview.example.com/",
		FinalInterviewURL:  "https://calendly.example.com/final",
	}
}

func newTestEnv() *testEnv {
	env := &testEnv{
		cfg:        testConfig(),
		repo:       newMockRepository(),
		questions:  &mockGenerator{},
		scorer:     &mockGenerator{},
		dispatcher: &mockDispatcher{},
		webhook:    &mockWebhookSender{},
		clock:      &testClock{t: baseTime},
	}
	env.manager = NewManager(env.cfg, env.repo, env.questions, env.scorer, env.dispatcher, env.webhook, &mockLocker{})
	env.manager.now = env.clock.now
	env.repo.addVacancy(repository.Vacancy{
		ID:              "vac-1",
		JobRole:         "Backend Engineer",
		RequiredSkills:  []string{"Go", "PostgreSQL"},
		ExperienceLevel: "Mid",
		CultureTraits:   []string{"ownership"},
		Description:     "Build hiring services",
	})
	env.repo.addCandidate(repository.Candidate{
		ID:         "cand-1",
		VacancyID:  "vac-1",
		Name:       "Alice",
		Email:      "alice@example.com",
		ResumeText: "Five years of Go.",
		Skills:     []string{"Go"},
		Status:     repository.CandidateStatusFormCompleted,
	})
	return env
}

// seedSession stores an active session for cand-1. A nil startedAt leaves it Scheduled.
func (e *testEnv) seedSession(scheduledAt time.Time, startedAt *time.Time, turns []repository.Turn) repository.Session {
	s := repository.Session{
		ID:            "sess-1",
		CandidateID:   "cand-1",
		Token:         "tok-1",
		ScheduledAt:   scheduledAt,
		ExpiresAt:     scheduledAt.Add(time.Hour),
		StartedAt:     startedAt,
		QuestionCount: len(turns),
		Transcript:    turns,
		IsActive:      true,
		CreatedAt:     scheduledAt,
		UpdatedAt:     scheduledAt,
	}
	if startedAt != nil {
		s.UpdatedAt = *startedAt
	}
	e.repo.putSession(s)
	return s
}

// seedStarted stores a session scheduled ten minutes ago and entered five minutes ago.
func (e *testEnv) seedStarted(turns []repository.Turn) repository.Session {
	started := e.clock.now().Add(-5 * time.Minute)
	return e.seedSession(e.clock.now().Add(-10*time.Minute), &started, turns)
}

func strPtr(s string) *string {
	return &s
}
