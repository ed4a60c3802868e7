package session

import (
	_ "embed"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/foxseedlab/mensetsu/internal/repository"
)

//go:embed prompts/question.md
var questionPromptTemplate string

//go:embed prompts/evaluation.md
var evaluationPromptTemplate string

const (
	maxResumeRunes = 4000
	notSpecified   = "Not specified"
)

var questionTopics = []string{
	"technical skills",
	"problem solving",
	"past experience and impact",
	"communication and collaboration",
	"culture fit and motivation",
}

var questionLabelPattern = regexp.MustCompile(`(?i)^(\*\*)?\s*(question|q)\s*\d*\s*[:.)\-]\s*(\*\*)?\s*`)

func topicFor(questionNumber int) string {
	if questionNumber < 1 {
		questionNumber = 1
	}
	return questionTopics[(questionNumber-1)%len(questionTopics)]
}

func buildQuestionPrompt(vacancy *repository.Vacancy, candidate *repository.Candidate, turns []repository.Turn, questionNumber, maxQuestions int) string {
	replacer := strings.NewReplacer(append(contextReplacements(vacancy, candidate),
		"{{JOB_DESCRIPTION}}", orNotSpecified(vacancyField(vacancy, func(v *repository.Vacancy) string { return v.Description })),
		"{{RESUME}}", orNotSpecified(truncateRunes(strings.TrimSpace(candidate.ResumeText), maxResumeRunes)),
		"{{TRANSCRIPT}}", renderConversation(turns),
		"{{QUESTION_NUMBER}}", strconv.Itoa(questionNumber),
		"{{MAX_QUESTIONS}}", strconv.Itoa(maxQuestions),
		"{{TOPIC}}", topicFor(questionNumber),
		"{{TOPICS}}", strings.Join(questionTopics, ", "),
	)...)
	return replacer.Replace(questionPromptTemplate)
}

func buildEvaluationPrompt(vacancy *repository.Vacancy, candidate *repository.Candidate, transcript string) string {
	screening := notSpecified
	if candidate.ScreeningScore != nil {
		screening = strconv.FormatFloat(*candidate.ScreeningScore, 'f', -1, 64) + "/100"
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = "(no answers were submitted)"
	}
	replacer := strings.NewReplacer(append(contextReplacements(vacancy, candidate),
		"{{SCREENING_SCORE}}", screening,
		"{{TRANSCRIPT}}", transcript,
	)...)
	return replacer.Replace(evaluationPromptTemplate)
}

func contextReplacements(vacancy *repository.Vacancy, candidate *repository.Candidate) []string {
	experience := notSpecified
	if candidate.ExperienceYears != nil {
		experience = strconv.FormatFloat(*candidate.ExperienceYears, 'f', -1, 64) + " years"
	}
	return []string{
		"{{JOB_ROLE}}", orNotSpecified(vacancyField(vacancy, func(v *repository.Vacancy) string { return v.JobRole })),
		"{{REQUIRED_SKILLS}}", orNotSpecified(vacancyField(vacancy, func(v *repository.Vacancy) string { return strings.Join(v.RequiredSkills, ", ") })),
		"{{EXPERIENCE_LEVEL}}", orNotSpecified(vacancyField(vacancy, func(v *repository.Vacancy) string { return v.ExperienceLevel })),
		"{{CULTURE_TRAITS}}", orNotSpecified(vacancyField(vacancy, func(v *repository.Vacancy) string { return strings.Join(v.CultureTraits, ", ") })),
		"{{CANDIDATE_SKILLS}}", orNotSpecified(strings.Join(candidate.Skills, ", ")),
		"{{EXPERIENCE_YEARS}}", experience,
	}
}

func vacancyField(v *repository.Vacancy, get func(*repository.Vacancy) string) string {
	if v == nil {
		return ""
	}
	return get(v)
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// sanitizeQuestion strips the decoration models tend to add around a single
// question. An empty result means the generation produced nothing usable.
func sanitizeQuestion(raw string) string {
	q := stripCodeFence(raw)
	q = strings.Trim(q, "`")
	q = strings.TrimSpace(q)
	q = questionLabelPattern.ReplaceAllString(q, "")
	q = strings.TrimSpace(strings.Trim(q, "\"'“”*"))
	return strings.Join(strings.Fields(q), " ")
}
