package session

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Recommendation string

const (
	RecommendationStrongFit      Recommendation = "Strong Fit"
	RecommendationModerateFit    Recommendation = "Moderate Fit"
	RecommendationNotRecommended Recommendation = "Not Recommended"
)

const (
	fallbackScore = 70
	fallbackNotes = "Unable to parse AI evaluation"

	strongFitFloor   = 80
	moderateFitFloor = 60
)

type Evaluation struct {
	SkillScore          float64        `json:"skill_score"`
	CommunicationScore  float64        `json:"communication_score"`
	ProblemSolvingScore float64        `json:"problem_solving_score"`
	CultureFitScore     float64        `json:"culture_fit_score"`
	OverallScore        float64        `json:"overall_score"`
	Recommendation      Recommendation `json:"recommendation"`
	Notes               string         `json:"evaluation_notes"`
}

func FallbackEvaluation() Evaluation {
	return Evaluation{
		SkillScore:          fallbackScore,
		CommunicationScore:  fallbackScore,
		ProblemSolvingScore: fallbackScore,
		CultureFitScore:     fallbackScore,
		OverallScore:        fallbackScore,
		Recommendation:      RecommendationModerateFit,
		Notes:               fallbackNotes,
	}
}

// ParseEvaluation reads scorer output. The whole text is tried as JSON first,
// then the first balanced {...} object inside it. Failure is ErrParseFailed.
func ParseEvaluation(raw string) (Evaluation, error) {
	cleaned := stripCodeFence(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		obj, ok := firstJSONObject(cleaned)
		if !ok {
			return Evaluation{}, fmt.Errorf("%w: no json object in scorer output", ErrParseFailed)
		}
		data = nil
		if err := json.Unmarshal([]byte(obj), &data); err != nil {
			return Evaluation{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	return evaluationFromMap(data)
}

// parseEvaluationOrFallback never fails; the bool reports whether the
// fallback was used.
func parseEvaluationOrFallback(raw string) (Evaluation, bool) {
	ev, err := ParseEvaluation(raw)
	if err != nil {
		return FallbackEvaluation(), true
	}
	return ev, false
}

func evaluationFromMap(data map[string]any) (Evaluation, error) {
	if data == nil {
		return Evaluation{}, fmt.Errorf("%w: empty object", ErrParseFailed)
	}

	subScores := []string{"skill_score", "communication_score", "problem_solving_score", "culture_fit_score"}
	values := make(map[string]float64, len(subScores)+1)
	found := 0
	for _, key := range append(subScores, "overall_score") {
		v := coerceFloat(data[key])
		if math.IsNaN(v) {
			continue
		}
		values[key] = clampScore(v)
		found++
	}
	if found == 0 {
		return Evaluation{}, fmt.Errorf("%w: no scores present", ErrParseFailed)
	}

	overall, ok := values["overall_score"]
	if !ok {
		sum := 0.0
		for _, key := range subScores {
			sum += values[key]
		}
		overall = sum / float64(len(subScores))
	}

	notes := coerceString(data["evaluation_notes"])
	if notes == "" {
		notes = coerceString(data["notes"])
	}

	return Evaluation{
		SkillScore:          values["skill_score"],
		CommunicationScore:  values["communication_score"],
		ProblemSolvingScore: values["problem_solving_score"],
		CultureFitScore:     values["culture_fit_score"],
		OverallScore:        overall,
		Recommendation:      normalizeRecommendation(coerceString(data["recommendation"]), overall),
		Notes:               notes,
	}, nil
}

func normalizeRecommendation(raw string, overall float64) Recommendation {
	switch strings.ToLower(strings.Join(strings.Fields(raw), " ")) {
	case "strong fit":
		return RecommendationStrongFit
	case "moderate fit":
		return RecommendationModerateFit
	case "not recommended":
		return RecommendationNotRecommended
	}
	switch {
	case overall >= strongFitFloor:
		return RecommendationStrongFit
	case overall >= moderateFitFloor:
		return RecommendationModerateFit
	default:
		return RecommendationNotRecommended
	}
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}

// firstJSONObject returns the first brace-balanced object in s, ignoring
// braces that appear inside JSON strings.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		if i := strings.IndexByte(trimmed, '/'); i != -1 {
			trimmed = strings.TrimSpace(trimmed[:i])
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
