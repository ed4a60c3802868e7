package repository

import "time"

type CandidateStatus string

const (
	CandidateStatusNew              CandidateStatus = "new"
	CandidateStatusScreened         CandidateStatus = "screened"
	CandidateStatusFormSent         CandidateStatus = "form_sent"
	CandidateStatusFormCompleted    CandidateStatus = "form_completed"
	CandidateStatusInterviewSent    CandidateStatus = "interview_sent"
	CandidateStatusInterviewStarted CandidateStatus = "interview_started"
	CandidateStatusInterviewed      CandidateStatus = "interviewed"
	CandidateStatusRecommended      CandidateStatus = "recommended"
	CandidateStatusRejected         CandidateStatus = "rejected"
)

type EmailStatus string

const (
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
	EmailStatusSkipped EmailStatus = "skipped"
)

// Turn is one question/answer pair. Answer stays nil until the candidate submits it.
type Turn struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}

type Session struct {
	ID            string
	CandidateID   string
	Token         string
	ScheduledAt   time.Time
	ExpiresAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	QuestionCount int
	Transcript    []Turn
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Candidate struct {
	ID              string
	VacancyID       string
	Name            string
	Email           string
	ResumeText      string
	Skills          []string
	ExperienceYears *float64
	ScreeningScore  *float64
	Status          CandidateStatus
}

type Vacancy struct {
	ID              string
	JobRole         string
	RequiredSkills  []string
	ExperienceLevel string
	CultureTraits   []string
	Description     string
}

type InterviewRecord struct {
	ID                  string
	CandidateID         string
	VacancyID           string
	SessionID           string
	Transcript          []Turn
	SkillScore          float64
	CommunicationScore  float64
	ProblemSolvingScore float64
	CultureFitScore     float64
	OverallScore        float64
	Recommendation      string
	EvaluationNotes     string
	DurationMinutes     int
	StartedAt           time.Time
	CompletedAt         time.Time
	CreatedAt           time.Time
}

type EmailLog struct {
	CandidateID       string
	EmailType         string
	RecipientEmail    string
	Subject           string
	Status            EmailStatus
	ProviderMessageID string
	SentAt            time.Time
}
