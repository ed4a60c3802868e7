package notification

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/notification"
	"github.com/foxseedlab/mensetsu/internal/repository"
)

const (
	sendTimeout              = 30 * time.Second
	placeholderEmailSuffix   = "@placeholder.local"
	scheduledAtDisplayLayout = "2006-01-02 15:04 MST"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[notification.Kind]string{
	notification.KindInterviewInvitation: "AI Interview Invitation",
	notification.KindFinalInterview:      "Final Interview – Schedule Your Slot",
	notification.KindRejection:           "Application Update",
}

type SendGridConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Location  *time.Location
}

type SendGridDispatcher struct {
	cfg    SendGridConfig
	logs   repository.EmailLogRepository
	client *http.Client
	now    func() time.Time
}

func NewSendGridDispatcher(cfg SendGridConfig, logs repository.EmailLogRepository) *SendGridDispatcher {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SendGridDispatcher{
		cfg:    cfg,
		logs:   logs,
		client: &http.Client{Timeout: sendTimeout},
		now:    time.Now,
	}
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

type templateData struct {
	Name        string
	Link        string
	ScheduledAt string
	ValidFor    string
	Sender      string
}

func (d *SendGridDispatcher) Send(ctx context.Context, msg notification.Message) error {
	subject, ok := subjects[msg.Kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", msg.Kind)
	}
	recipient := strings.TrimSpace(msg.RecipientEmail)
	if d.cfg.APIKey == "" || recipient == "" || strings.HasSuffix(strings.ToLower(recipient), placeholderEmailSuffix) {
		slog.Warn("skipping email send", "kind", msg.Kind, "candidate_id", msg.CandidateID, "recipient", recipient, "email_configured", d.cfg.APIKey != "")
		d.writeLog(ctx, msg, subject, repository.EmailStatusSkipped, "")
		return nil
	}

	body, err := d.render(msg)
	if err != nil {
		d.writeLog(ctx, msg, subject, repository.EmailStatusFailed, "")
		return err
	}

	messageID, err := d.post(ctx, mailSendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: recipient, Name: msg.RecipientName}}}},
		From:             emailAddress{Email: d.cfg.FromEmail, Name: d.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/html", Value: body}},
		Categories:       []string{string(msg.Kind)},
	})
	if err != nil {
		d.writeLog(ctx, msg, subject, repository.EmailStatusFailed, "")
		return err
	}
	slog.Info("email sent", "kind", msg.Kind, "candidate_id", msg.CandidateID, "message_id", messageID)
	d.writeLog(ctx, msg, subject, repository.EmailStatusSent, messageID)
	return nil
}

func (d *SendGridDispatcher) render(msg notification.Message) (string, error) {
	data := templateData{
		Name:   msg.RecipientName,
		Link:   msg.Link,
		Sender: d.cfg.FromName,
	}
	if !msg.ScheduledAt.IsZero() {
		data.ScheduledAt = msg.ScheduledAt.In(d.cfg.Location).Format(scheduledAtDisplayLayout)
	}
	if msg.ValidFor > 0 {
		data.ValidFor = msg.ValidFor.String()
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(msg.Kind)+".html", data); err != nil {
		return "", fmt.Errorf("render %s email: %w", msg.Kind, err)
	}
	return buf.String(), nil
}

func (d *SendGridDispatcher) post(ctx context.Context, payload mailSendRequest) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return resp.Header.Get("X-Message-Id"), nil
}

func (d *SendGridDispatcher) writeLog(ctx context.Context, msg notification.Message, subject string, status repository.EmailStatus, messageID string) {
	if d.logs == nil {
		return
	}
	err := d.logs.InsertEmailLog(ctx, repository.EmailLog{
		CandidateID:       msg.CandidateID,
		EmailType:         string(msg.Kind),
		RecipientEmail:    msg.RecipientEmail,
		Subject:           subject,
		Status:            status,
		ProviderMessageID: messageID,
		SentAt:            d.now().UTC(),
	})
	if err != nil {
		slog.Error("failed to write email log", "error", err, "candidate_id", msg.CandidateID, "kind", msg.Kind)
	}
}
