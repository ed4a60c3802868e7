package discord

import (
	"context"
	"errors"
	"strings"
	"testing"

	discordpkg "github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

type mockClient struct {
	messages []string
	files    []discordpkg.FileMessage
	ctxs     []context.Context
	err      error
}

func (m *mockClient) SendChannelMessage(ctx context.Context, channelID, content string) error {
	m.ctxs = append(m.ctxs, ctx)
	m.messages = append(m.messages, channelID+"|"+content)
	return m.err
}

func (m *mockClient) SendChannelMessageWithFile(ctx context.Context, msg discordpkg.FileMessage) error {
	m.ctxs = append(m.ctxs, ctx)
	m.files = append(m.files, msg)
	return m.err
}

func (m *mockClient) ChannelName(_ context.Context, channelID string) string {
	return channelID
}

func decisionPayload(status string) webhook.StatusChangePayload {
	return webhook.StatusChangePayload{
		CandidateID: "cand-1",
		SessionID:   "sess-1",
		Status:      status,
		OccurredAt:  "2026-03-01T10:00:00Z",
		Evaluation:  &webhook.EvaluationSummary{OverallScore: 85, Recommendation: "Strong Fit", DurationMinutes: 12},
		Transcript: []webhook.StatusChangeTurn{
			{Index: 1, Question: "Why Go?", Answer: "Simplicity."},
			{Index: 2, Question: "Last project?"},
		},
	}
}

func TestAlertSender_PostsDecisionWithTranscript(t *testing.T) {
	client := &mockClient{}
	s := NewAlertSender(client, "chan-1")
	if err := s.SendStatusChange(context.Background(), decisionPayload("recommended")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.files) != 1 {
		t.Fatalf("expected one file message, got %d", len(client.files))
	}
	msg := client.files[0]
	if msg.ChannelID != "chan-1" || msg.Filename != "interview-cand-1.txt" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	for _, want := range []string{"Candidate recommended for final interview", "85.0 (Strong Fit)", "12 min, 2 questions"} {
		if !strings.Contains(msg.Content, want) {
			t.Fatalf("content missing %q:\n%s", want, msg.Content)
		}
	}
	body := string(msg.FileBody)
	if !strings.Contains(body, "Q1: Why Go?\nA1: Simplicity.") || !strings.Contains(body, "A2: (no answer)") {
		t.Fatalf("unexpected transcript file:\n%s", body)
	}
}

func TestAlertSender_WithoutTranscript(t *testing.T) {
	client := &mockClient{}
	payload := decisionPayload("rejected")
	payload.Transcript = nil
	if err := NewAlertSender(client, "chan-1").SendStatusChange(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.messages) != 1 || !strings.HasPrefix(client.messages[0], "chan-1|**Candidate not recommended**") {
		t.Fatalf("unexpected messages: %v", client.messages)
	}
}

func TestAlertSender_IgnoresIntermediateStatuses(t *testing.T) {
	client := &mockClient{}
	s := NewAlertSender(client, "chan-1")
	for _, payload := range []webhook.StatusChangePayload{
		decisionPayload("interviewed"),
		{CandidateID: "cand-1", Status: "interview_sent"},
		{CandidateID: "cand-1", Status: "recommended"},
	} {
		if err := s.SendStatusChange(context.Background(), payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(client.messages)+len(client.files) != 0 {
		t.Fatalf("expected no posts, got %v %v", client.messages, client.files)
	}
}

func TestAlertSender_PropagatesClientError(t *testing.T) {
	client := &mockClient{err: errors.New("rate limited")}
	err := NewAlertSender(client, "chan-1").SendStatusChange(context.Background(), decisionPayload("recommended"))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestTruncateMessage(t *testing.T) {
	long := strings.Repeat("あ", maxMessageRunes+10)
	got := truncateMessage(long)
	if n := len([]rune(got)); n != maxMessageRunes {
		t.Fatalf("expected %d runes, got %d", maxMessageRunes, n)
	}
	if truncateMessage("short") != "short" {
		t.Fatal("short messages must be unchanged")
	}
}

type ctxKey struct{}

func TestAlertSender_PassesCallerContext(t *testing.T) {
	client := &mockClient{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "evaluate")
	if err := NewAlertSender(client, "chan-1").SendStatusChange(ctx, decisionPayload("recommended")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.ctxs) != 1 || client.ctxs[0].Value(ctxKey{}) != "evaluate" {
		t.Fatalf("caller context was not passed to the client: %v", client.ctxs)
	}
}
