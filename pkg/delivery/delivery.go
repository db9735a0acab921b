// Package delivery posts monitor items to chat channels.
package delivery

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"gitlab.com/Cacophony/Monitor/pkg/source"
)

// ErrChannelUnavailable is returned when a channel cannot receive messages
var ErrChannelUnavailable = errors.New("channel unavailable")

// Sink sends text to a channel
type Sink interface {
	Send(ctx context.Context, channelID, text string) error
}

// FormatItem renders an item as a chat message
func FormatItem(item source.Item) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "New post"
	}

	return "📢 **" + title + "**\n" + item.Permalink
}

// IsChannelUnavailable reports whether err was caused by an unavailable channel
func IsChannelUnavailable(err error) bool {
	return errors.Cause(err) == ErrChannelUnavailable
}
