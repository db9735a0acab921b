package poll

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/metrics"
	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/monitor"
	"gitlab.com/Cacophony/Monitor/pkg/source"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

// Config for the poll plugin
type Config struct {
	PassInterval time.Duration `envconfig:"MONITOR_PASS_INTERVAL" default:"30s"`
	Concurrency  int           `envconfig:"MONITOR_CONCURRENCY" default:"1"`
	LockTimeout  time.Duration `envconfig:"MONITOR_LOCK_TIMEOUT" default:"2m"`
}

type registry interface {
	Scan(ctx context.Context, fn func(key string) error) error
	GetByKey(ctx context.Context, key string) (*monitor.Descriptor, error)
}

type dedupLedger interface {
	IsDelivered(ctx context.Context, monitorKey, itemID string) (bool, error)
	MarkDelivered(ctx context.Context, monitorKey, itemID string) error
	EnsureSetType(ctx context.Context, monitorKey string) (bool, error)
}

type Plugin struct {
	logger   *zap.Logger
	config   Config
	redis    *redis.Client
	registry registry
	ledger   dedupLedger
	fetcher  source.Fetcher
	sink     delivery.Sink
	now      func() time.Time
}

func (p *Plugin) Name() string {
	return "poll"
}

func (p *Plugin) Interval() time.Duration {
	if p.config.PassInterval <= 0 {
		return 30 * time.Second
	}
	return p.config.PassInterval
}

func (p *Plugin) Start(params common.StartParameters) error {
	err := envconfig.Process("", &p.config)
	if err != nil {
		return errors.Wrap(err, "unable to load poll config")
	}

	p.logger = params.Logger
	p.redis = params.Redis
	p.registry = params.Registry
	p.ledger = params.Ledger
	p.fetcher = params.Fetcher
	p.sink = params.Sink
	p.now = time.Now

	return nil
}

func (p *Plugin) Stop(params common.StopParameters) error {
	return nil
}

// Run performs one pass over every monitor
func (p *Plugin) Run(run *common.Run) error {
	run.Logger().Debug("run started")

	now := p.now()

	descriptors, total, err := p.dueMonitors(run, now)
	metrics.Monitors.Set(int64(total))
	if err != nil {
		return errors.Wrap(err, "unable to enumerate monitors")
	}

	if len(descriptors) > 0 {
		p.checkBundles(run, bundleMonitors(run, descriptors), now)
	}

	metrics.Passes.Add(1)

	return nil
}

// dueMonitors scans the registry and returns every monitor whose interval has elapsed
func (p *Plugin) dueMonitors(run *common.Run, now time.Time) ([]monitor.Descriptor, int, error) {
	ctx := run.Context()
	callCtx := context.WithoutCancel(ctx)

	var due []monitor.Descriptor
	var total int
	err := p.registry.Scan(callCtx, func(key string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		total++

		descriptor, err := p.registry.GetByKey(callCtx, key)
		if err != nil {
			run.Logger().Warn("skipped unreadable monitor",
				zap.String("monitor_key", key),
				zap.Error(err),
			)
			return nil
		}

		isDue, err := p.shouldCheck(callCtx, key, descriptor.Interval(), now)
		if err != nil {
			run.Except(err, "monitor_key", key)
			return nil
		}
		if !isDue {
			return nil
		}

		due = append(due, *descriptor)
		return nil
	})

	return due, total, err
}
