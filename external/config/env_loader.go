package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/mensetsu/internal/config"
)

type envConfig struct {
	Env                   string   `env:"ENV" envDefault:"production"`
	HTTPAddr              string   `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL           string   `env:"DATABASE_URL,required"`
	RedisURL              string   `env:"REDIS_URL"`
	MaxQuestions          int      `env:"MAX_QUESTIONS" envDefault:"5"`
	SessionValidityMin    int      `env:"SESSION_VALIDITY_MIN" envDefault:"60"`
	SessionIdleTimeoutMin int      `env:"SESSION_IDLE_TIMEOUT_MIN" envDefault:"0"`
	RecommendThreshold    float64  `env:"RECOMMEND_THRESHOLD" envDefault:"80"`
	ScheduleTimezone      string   `env:"SCHEDULE_TIMEZONE" envDefault:"Asia/Kolkata"`
	AITimeoutSec          int      `env:"AI_TIMEOUT_SEC" envDefault:"60"`
	LockTTLSec            int      `env:"LOCK_TTL_SEC" envDefault:"120"`
	GeminiAPIKey          string   `env:"GEMINI_API_KEY,required"`
	GeminiModel           string   `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	SendGridAPIKey        string   `env:"SENDGRID_API_KEY"`
	SendGridBaseURL       string   `env:"SENDGRID_BASE_URL" envDefault:"https://api.sendgrid.com"`
	SendGridFromEmail     string   `env:"SENDGRID_FROM_EMAIL"`
	SendGridFromName      string   `env:"SENDGRID_FROM_NAME" envDefault:"Futuready HR"`
	InterviewUIURL        string   `env:"INTERVIEW_UI_URL,required"`
	FinalInterviewURL     string   `env:"FINAL_INTERVIEW_URL"`
	StatusWebhookURL      string   `env:"STATUS_WEBHOOK_URL"`
	DiscordBotToken       string   `env:"DISCORD_BOT_TOKEN"`
	DiscordAlertChannelID string   `env:"DISCORD_ALERT_CHANNEL_ID"`
	CORSAllowedOrigins    []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ExpirySweepSchedule   string   `env:"EXPIRY_SWEEP_SCHEDULE" envDefault:"@every 5m"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                   raw.Env,
		HTTPAddr:              raw.HTTPAddr,
		DatabaseURL:           raw.DatabaseURL,
		RedisURL:              raw.RedisURL,
		MaxQuestions:          raw.MaxQuestions,
		SessionValidityMin:    raw.SessionValidityMin,
		SessionIdleTimeoutMin: raw.SessionIdleTimeoutMin,
		RecommendThreshold:    raw.RecommendThreshold,
		ScheduleTimezone:      raw.ScheduleTimezone,
		AITimeoutSec:          raw.AITimeoutSec,
		LockTTLSec:            raw.LockTTLSec,
		GeminiAPIKey:          raw.GeminiAPIKey,
		GeminiModel:           raw.GeminiModel,
		SendGridAPIKey:        raw.SendGridAPIKey,
		SendGridBaseURL:       raw.SendGridBaseURL,
		SendGridFromEmail:     raw.SendGridFromEmail,
		SendGridFromName:      raw.SendGridFromName,
		InterviewUIURL:        raw.InterviewUIURL,
		FinalInterviewURL:     raw.FinalInterviewURL,
		StatusWebhookURL:      raw.StatusWebhookURL,
		DiscordBotToken:       raw.DiscordBotToken,
		DiscordAlertChannelID: raw.DiscordAlertChannelID,
		CORSAllowedOrigins:    raw.CORSAllowedOrigins,
		ExpirySweepSchedule:   raw.ExpirySweepSchedule,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
