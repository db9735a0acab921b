package common

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/errortracking"
)

// Except logs err with the given key value pairs and reports it unless it is expected noise
func (r *Run) Except(err error, keyvals ...string) {
	if err == nil {
		return
	}

	tags := map[string]string{
		"plugin": r.Plugin,
		"launch": r.Launch.String(),
		"run_id": r.ID,
	}
	fields := []zap.Field{zap.Error(err)}
	for i := 0; i+1 < len(keyvals); i += 2 {
		tags[keyvals[i]] = keyvals[i+1]
		fields = append(fields, zap.String(keyvals[i], keyvals[i+1]))
	}

	if ignoreError(err) {
		r.Logger().Debug("expected error occurred while executing run", fields...)
		return
	}

	r.Logger().Error("error occurred while executing run", fields...)

	errortracking.Capture(err, tags)
}

func ignoreError(err error) bool {
	if err == nil {
		return true
	}

	if delivery.IsChannelUnavailable(err) {
		return true
	}

	// discord permission errors
	if errD, ok := errors.Cause(err).(*discordgo.RESTError); ok && errD != nil && errD.Message != nil {
		if errD.Message.Code == discordgo.ErrCodeMissingPermissions ||
			errD.Message.Code == discordgo.ErrCodeMissingAccess ||
			errD.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
			return true
		}
	}

	// sources that stopped serving a feed
	if strings.Contains(err.Error(), "Failed to detect feed type") {
		return true
	}

	return false
}
