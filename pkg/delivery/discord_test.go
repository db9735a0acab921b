package delivery

import (
	"context"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/Cacophony/Monitor/pkg/source"
)

type fakeSession struct {
	err      error
	channels map[string]*discordgo.Channel
	sent     map[string][]string
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) Channel(channelID string) (*discordgo.Channel, error) {
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, &discordgo.RESTError{
			Response: &http.Response{StatusCode: http.StatusNotFound},
			Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel, Message: "Unknown Channel"},
		}
	}
	return channel, nil
}

func TestDiscordSend(t *testing.T) {
	session := &fakeSession{}
	sink := newDiscord(session, 0)

	require.NoError(t, sink.Send(context.Background(), "c1", "hello"))
	assert.Equal(t, []string{"hello"}, session.sent["c1"])
}

func TestDiscordSendErrors(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{
			name: "missing permissions",
			err: &discordgo.RESTError{
				Response: &http.Response{StatusCode: http.StatusForbidden, Status: "403 Forbidden"},
				Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions},
			},
			wantUnavailable: true,
		},
		{
			name: "unknown channel",
			err: &discordgo.RESTError{
				Response: &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
			},
			wantUnavailable: true,
		},
		{
			name: "server error",
			err: &discordgo.RESTError{
				Response: &http.Response{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway"},
			},
		},
		{
			name: "network error",
			err:  errors.New("connection reset"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newDiscord(&fakeSession{err: tt.err}, 0)

			err := sink.Send(context.Background(), "c1", "hello")
			require.Error(t, err)
			assert.Equal(t, tt.wantUnavailable, IsChannelUnavailable(err))
		})
	}
}

func TestDiscordSendCancelled(t *testing.T) {
	sink := newDiscord(&fakeSession{}, 1)
	ctx, cancel := context.WithCancel(context.Background())

	// drain the single token, the next wait has to block
	require.NoError(t, sink.Send(ctx, "c1", "first"))
	cancel()

	assert.Error(t, sink.Send(ctx, "c1", "second"))
}

func TestDiscordResolver(t *testing.T) {
	resolver := &DiscordResolver{
		session: &fakeSession{channels: map[string]*discordgo.Channel{
			"c1": {ID: "c1", GuildID: "G1"},
			"c9": {ID: "c9", GuildID: "G2"},
		}},
	}
	ctx := context.Background()

	assert.NoError(t, resolver.ResolveChannel(ctx, "G1", "c1"))
	assert.True(t, IsChannelUnavailable(resolver.ResolveChannel(ctx, "G1", "c9")))
	assert.True(t, IsChannelUnavailable(resolver.ResolveChannel(ctx, "G1", "missing")))
}

func TestFormatItem(t *testing.T) {
	assert.Equal(t,
		"📢 **v0.3.0**\nhttps://example.com/releases/v0.3.0",
		FormatItem(source.Item{Title: " v0.3.0 ", Permalink: "https://example.com/releases/v0.3.0"}),
	)
	assert.Equal(t,
		"📢 **New post**\nhttps://example.com/p/1",
		FormatItem(source.Item{Permalink: "https://example.com/p/1"}),
	)
}
