package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	RedisURL              string
	MaxQuestions          int
	SessionValidityMin    int
	SessionIdleTimeoutMin int
	RecommendThreshold    float64
	ScheduleTimezone      string
	AITimeoutSec          int
	LockTTLSec            int
	GeminiAPIKey          string
	GeminiModel           string
	SendGridAPIKey        string
	SendGridBaseURL       string
	SendGridFromEmail     string
	SendGridFromName      string
	InterviewUIURL        string
	FinalInterviewURL     string
	StatusWebhookURL      string
	DiscordBotToken       string
	DiscordAlertChannelID string
	CORSAllowedOrigins    []string
	ExpirySweepSchedule   string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.MaxQuestions <= 0 {
		return fmt.Errorf("MAX_QUESTIONS must be positive, got %d", c.MaxQuestions)
	}
	if c.SessionValidityMin <= 0 {
		return fmt.Errorf("SESSION_VALIDITY_MIN must be positive, got %d", c.SessionValidityMin)
	}
	if c.SessionIdleTimeoutMin < 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT_MIN must not be negative, got %d", c.SessionIdleTimeoutMin)
	}
	if c.RecommendThreshold < 0 || c.RecommendThreshold > 100 {
		return fmt.Errorf("RECOMMEND_THRESHOLD must be within [0, 100], got %v", c.RecommendThreshold)
	}
	if c.AITimeoutSec <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SEC must be positive, got %d", c.AITimeoutSec)
	}
	if c.LockTTLSec <= c.AITimeoutSec {
		return fmt.Errorf("LOCK_TTL_SEC (%d) must exceed AI_TIMEOUT_SEC (%d)", c.LockTTLSec, c.AITimeoutSec)
	}
	if _, err := time.LoadLocation(c.ScheduleTimezone); err != nil {
		return fmt.Errorf("SCHEDULE_TIMEZONE is invalid: %w", err)
	}
	if _, err := url.ParseRequestURI(c.InterviewUIURL); err != nil {
		return fmt.Errorf("INTERVIEW_UI_URL is invalid: %w", err)
	}
	if c.DiscordBotToken != "" && c.DiscordAlertChannelID == "" {
		return fmt.Errorf("DISCORD_ALERT_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	if c.SendGridAPIKey != "" && c.SendGridFromEmail == "" {
		return fmt.Errorf("SENDGRID_FROM_EMAIL is required when SENDGRID_API_KEY is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "INTERVIEW_UI_URL", value: c.InterviewUIURL},
		{name: "SCHEDULE_TIMEZONE", value: c.ScheduleTimezone},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) SessionValidity() time.Duration {
	return time.Duration(c.SessionValidityMin) * time.Minute
}

// SessionIdleTimeout is zero when mid-interview staleness is not enforced.
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleTimeoutMin) * time.Minute
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSec) * time.Second
}

func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSec) * time.Second
}

// ScheduleLocation falls back to UTC; Validate has already rejected unknown zones.
func (c *Config) ScheduleLocation() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) InterviewLink(token string) string {
	base := strings.TrimRight(c.InterviewUIURL, "?&")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}
