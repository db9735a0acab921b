package common

import (
	"github.com/go-redis/redis"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/ledger"
	"gitlab.com/Cacophony/Monitor/pkg/monitor"
	"gitlab.com/Cacophony/Monitor/pkg/source"
)

type StartParameters struct {
	Logger   *zap.Logger
	Redis    *redis.Client
	Registry *monitor.Registry
	Ledger   *ledger.Ledger
	Fetcher  source.Fetcher
	Sink     delivery.Sink
}

type StopParameters struct {
	Logger *zap.Logger
	Redis  *redis.Client
}
