package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/mensetsu/internal/discord"
)

var errChannelNotFound = errors.New("discord channel not found")

type Client struct {
	session *discordgo.Session
}

// NewClient builds a REST-only client. No gateway connection is opened.
func NewClient(token string) (discordpkg.Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	return &Client{session: s}, nil
}

func (c *Client) SendChannelMessage(ctx context.Context, channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return wrapRESTError(channelID, err)
}

func (c *Client) SendChannelMessageWithFile(ctx context.Context, msg discordpkg.FileMessage) error {
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	}, discordgo.WithContext(ctx))
	return wrapRESTError(msg.ChannelID, err)
}

// ChannelName falls back to the id when the channel cannot be resolved.
func (c *Client) ChannelName(ctx context.Context, channelID string) string {
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel.Name
		}
	}
	channel, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil || channel == nil || channel.Name == "" {
		return channelID
	}
	return channel.Name
}

func wrapRESTError(channelID string, err error) error {
	if err == nil {
		return nil
	}
	if isRESTNotFound(err) {
		return fmt.Errorf("%w: %s", errChannelNotFound, channelID)
	}
	return err
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}
