package discord

import "context"

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client posts to recruiter channels over the Discord REST API.
type Client interface {
	SendChannelMessage(ctx context.Context, channelID, content string) error
	SendChannelMessageWithFile(ctx context.Context, msg FileMessage) error
	ChannelName(ctx context.Context, channelID string) string
}
