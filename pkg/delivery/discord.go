package delivery

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type messageSender interface {
	ChannelMessageSend(channelID string, content string) (*discordgo.Message, error)
}

// Discord posts messages through the Discord REST API
type Discord struct {
	session messageSender
	limiter *rate.Limiter
}

// NewDiscord creates a Discord sink, messagesPerSecond <= 0 disables rate limiting
func NewDiscord(session *discordgo.Session, messagesPerSecond float64) *Discord {
	return newDiscord(session, messagesPerSecond)
}

func newDiscord(session messageSender, messagesPerSecond float64) *Discord {
	limit := rate.Inf
	if messagesPerSecond > 0 {
		limit = rate.Limit(messagesPerSecond)
	}

	return &Discord{
		session: session,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Send posts text to channelID
func (d *Discord) Send(ctx context.Context, channelID, text string) error {
	err := d.limiter.Wait(ctx)
	if err != nil {
		return errors.Wrap(err, "rate limit wait cancelled")
	}

	_, err = d.session.ChannelMessageSend(channelID, text)
	if err != nil {
		if channelUnavailable(err) {
			return errors.Wrapf(ErrChannelUnavailable, "unable to send to channel %s: %s", channelID, err)
		}
		return errors.Wrapf(err, "unable to send to channel %s", channelID)
	}

	return nil
}

func channelUnavailable(err error) bool {
	errD, ok := errors.Cause(err).(*discordgo.RESTError)
	if !ok || errD == nil {
		return false
	}

	if errD.Message != nil {
		switch errD.Message.Code {
		case discordgo.ErrCodeUnknownChannel,
			discordgo.ErrCodeMissingAccess,
			discordgo.ErrCodeMissingPermissions,
			discordgo.ErrCodeCannotSendMessagesToThisUser:
			return true
		}
	}

	return errD.Response != nil &&
		(errD.Response.StatusCode == http.StatusNotFound || errD.Response.StatusCode == http.StatusForbidden)
}

type channelGetter interface {
	Channel(channelID string) (*discordgo.Channel, error)
}

// DiscordResolver checks delivery channels against the Discord API
type DiscordResolver struct {
	state   *discordgo.State
	session channelGetter
}

// NewDiscordResolver creates a resolver, the session state is consulted before the REST API
func NewDiscordResolver(session *discordgo.Session) *DiscordResolver {
	return &DiscordResolver{
		state:   session.State,
		session: session,
	}
}

// ResolveChannel returns an error unless channelID is a channel of the guild scope
func (r *DiscordResolver) ResolveChannel(ctx context.Context, scope, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var channel *discordgo.Channel
	var err error
	if r.state != nil {
		channel, err = r.state.Channel(channelID)
	}
	if channel == nil || err != nil {
		channel, err = r.session.Channel(channelID)
		if err != nil {
			if channelUnavailable(err) {
				return ErrChannelUnavailable
			}
			return errors.Wrap(err, "unable to look up channel")
		}
	}

	if channel.GuildID != scope {
		return errors.Wrap(ErrChannelUnavailable, "channel belongs to another server")
	}

	return nil
}
