package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestSendChannelMessage_PostsToChannel(t *testing.T) {
	var gotPath, gotAuth string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		gotAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"chan-1"}`), nil
	})

	c := &Client{session: s}
	if err := c.SendChannelMessage(context.Background(), "chan-1", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/channels/chan-1/messages") {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotAuth != "Bot test-token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
}

func TestSendChannelMessage_UnknownChannel(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s}
	err := c.SendChannelMessage(context.Background(), "chan-missing", "hello")
	if !errors.Is(err, errChannelNotFound) {
		t.Fatalf("expected errChannelNotFound, got %v", err)
	}
}

func TestChannelName_UsesStateCacheFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID:       "guild-1",
		Channels: []*discordgo.Channel{{ID: "chan-1", GuildID: "guild-1", Name: "hiring-alerts"}},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	if got := c.ChannelName(context.Background(), "chan-1"); got != "hiring-alerts" {
		t.Fatalf("expected hiring-alerts, got %q", got)
	}
}

func TestChannelName_FallsBackToRESTThenID(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if strings.HasSuffix(req.URL.Path, "/channels/chan-rest") {
			return jsonResponse(http.StatusOK, `{"id":"chan-rest","name":"recruiters","type":0}`), nil
		}
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	c := &Client{session: s}
	if got := c.ChannelName(context.Background(), "chan-rest"); got != "recruiters" {
		t.Fatalf("expected recruiters, got %q", got)
	}
	if got := c.ChannelName(context.Background(), "chan-missing"); got != "chan-missing" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}

func TestSendChannelMessage_StopsOnCancelledContext(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if err := req.Context().Err(); err != nil {
			return nil, err
		}
		return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"chan-1"}`), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{session: s}
	if err := c.SendChannelMessage(ctx, "chan-1", "hello"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
