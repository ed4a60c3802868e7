package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	discordpkg "github.com/foxseedlab/mensetsu/internal/discord"
	"github.com/foxseedlab/mensetsu/internal/webhook"
)

const (
	maxMessageRunes       = 2000
	transcriptFilePattern = "interview-%s.txt"
)

var alertStatuses = map[string]string{
	"recommended": "Candidate recommended for final interview",
	"rejected":    "Candidate not recommended",
}

// AlertSender posts final interview decisions to a recruiter channel with
// the transcript attached.
type AlertSender struct {
	client    discordpkg.Client
	channelID string
}

func NewAlertSender(client discordpkg.Client, channelID string) *AlertSender {
	return &AlertSender{client: client, channelID: channelID}
}

func (s *AlertSender) SendStatusChange(ctx context.Context, payload webhook.StatusChangePayload) error {
	title, ok := alertStatuses[payload.Status]
	if !ok || payload.Evaluation == nil {
		return nil
	}

	content := truncateMessage(formatAlert(title, payload))
	var err error
	if len(payload.Transcript) == 0 {
		err = s.client.SendChannelMessage(ctx, s.channelID, content)
	} else {
		err = s.client.SendChannelMessageWithFile(ctx, discordpkg.FileMessage{
			ChannelID: s.channelID,
			Content:   content,
			Filename:  fmt.Sprintf(transcriptFilePattern, payload.CandidateID),
			FileBody:  []byte(formatTranscriptFile(payload)),
		})
	}
	if err != nil {
		return err
	}
	slog.Info("recruiter alert posted", "candidate_id", payload.CandidateID, "status", payload.Status, "channel_id", s.channelID)
	return nil
}

func formatAlert(title string, payload webhook.StatusChangePayload) string {
	ev := payload.Evaluation
	lines := []string{
		"**" + title + "**",
		"Candidate: `" + payload.CandidateID + "`",
		fmt.Sprintf("Overall score: %.1f (%s)", ev.OverallScore, ev.Recommendation),
		fmt.Sprintf("Duration: %d min, %d questions", ev.DurationMinutes, len(payload.Transcript)),
		"Completed at: " + payload.OccurredAt,
	}
	return strings.Join(lines, "\n")
}

func formatTranscriptFile(payload webhook.StatusChangePayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "candidate_id: %s\nsession_id: %s\n", payload.CandidateID, payload.SessionID)
	for _, t := range payload.Transcript {
		answer := t.Answer
		if answer == "" {
			answer = "(no answer)"
		}
		fmt.Fprintf(&b, "\nQ%d: %s\nA%d: %s\n", t.Index, t.Question, t.Index, answer)
	}
	return b.String()
}

func truncateMessage(s string) string {
	r := []rune(s)
	if len(r) <= maxMessageRunes {
		return s
	}
	return string(r[:maxMessageRunes-3]) + "..."
}

type disabledSender struct{}

func (disabledSender) SendStatusChange(context.Context, webhook.StatusChangePayload) error {
	return nil
}
