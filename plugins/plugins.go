package plugins

import (
	"time"

	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/plugins/common"
	ledgerexpiry "gitlab.com/Cacophony/Monitor/plugins/ledger-expiry"
	"gitlab.com/Cacophony/Monitor/plugins/poll"
	"gitlab.com/Cacophony/Monitor/plugins/stats"
)

type Plugin interface {
	Name() string

	// Interval is the delay between the end of one run and the start of the next
	Interval() time.Duration

	Start(common.StartParameters) error

	Stop(common.StopParameters) error

	Run(run *common.Run) error
}

// New returns a fresh instance of every plugin
func New() []Plugin {
	return []Plugin{
		&poll.Plugin{},
		&ledgerexpiry.Plugin{},
		&stats.Plugin{},
	}
}

// StartPlugins starts every plugin and returns those that started successfully
func StartPlugins(
	logger *zap.Logger,
	pluginList []Plugin,
	params common.StartParameters,
) []Plugin {
	started := make([]Plugin, 0, len(pluginList))
	for _, plugin := range pluginList {
		params.Logger = logger.With(zap.String("plugin", plugin.Name()))

		err := plugin.Start(params)
		if err != nil {
			logger.Error("failed to start plugin",
				zap.String("plugin", plugin.Name()),
				zap.Error(err),
			)
			continue
		}

		started = append(started, plugin)
	}

	return started
}

func StopPlugins(
	logger *zap.Logger,
	pluginList []Plugin,
	params common.StopParameters,
) {
	for _, plugin := range pluginList {
		params.Logger = logger.With(zap.String("plugin", plugin.Name()))

		err := plugin.Stop(params)
		if err != nil {
			logger.Error("failed to stop plugin",
				zap.String("plugin", plugin.Name()),
				zap.Error(err),
			)
		}
	}
}
