package discord

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/webhook"
	"github.com/samber/do/v2"
)

const channelLookupTimeout = 5 * time.Second

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, webhook.DiscordAlertSenderName, func(i do.Injector) (webhook.Sender, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.DiscordBotToken == "" {
			return disabledSender{}, nil
		}
		client, err := NewClient(c.DiscordBotToken)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), channelLookupTimeout)
		defer cancel()
		slog.Info("recruiter alerts enabled", "channel", client.ChannelName(ctx, c.DiscordAlertChannelID))
		return NewAlertSender(client, c.DiscordAlertChannelID), nil
	})
}
