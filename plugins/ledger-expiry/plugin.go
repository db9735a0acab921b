package ledgerexpiry

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/plugins/common"
)

// Config for the ledger expiry plugin
type Config struct {
	Threshold int           `envconfig:"LEDGER_EXPIRY_THRESHOLD" default:"10"`
	Interval  time.Duration `envconfig:"LEDGER_EXPIRY_INTERVAL" default:"1h"`
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

type expirer interface {
	ImposeExpiry(ctx context.Context) (int, error)
}

// Plugin imposes the retention TTL on dedup sets that lost it
type Plugin struct {
	logger   *zap.Logger
	config   Config
	redis    *redis.Client
	registry counter
	ledger   expirer
	now      func() time.Time
}

func (p *Plugin) Name() string {
	return "ledger-expiry"
}

// Interval is shorter than the expiry interval so a restarted worker catches up, the last run key
// keeps the work itself to once per expiry interval
func (p *Plugin) Interval() time.Duration {
	return 10 * time.Minute
}

func (p *Plugin) Start(params common.StartParameters) error {
	err := envconfig.Process("", &p.config)
	if err != nil {
		return errors.Wrap(err, "unable to load ledger expiry config")
	}

	p.logger = params.Logger
	p.redis = params.Redis
	p.registry = params.Registry
	p.ledger = params.Ledger
	p.now = time.Now

	return nil
}

func (p *Plugin) Stop(params common.StopParameters) error {
	return nil
}

func (p *Plugin) Run(run *common.Run) error {
	lock := p.getRunLock()
	locked, err := lock.LockWithContext(run.Context())
	if err != nil {
		return errors.Wrap(err, "error acquiring lock")
	}
	if !locked {
		run.Logger().Debug("skipped run, another run is already in progress")
		return nil
	}
	defer lock.Unlock() // nolint: errcheck

	shouldRun, err := p.shouldRun()
	if err != nil {
		return errors.Wrap(err, "error finding out if run should happen")
	}
	if !shouldRun {
		run.Logger().Debug("skipped run, previous run recently enough",
			zap.Duration("check_interval", p.config.Interval),
		)
		return nil
	}

	count, err := p.registry.Count(run.Context())
	if err != nil {
		return errors.Wrap(err, "unable to count monitors")
	}

	if count > p.config.Threshold {
		expired, err := p.ledger.ImposeExpiry(run.Context())
		if err != nil {
			return errors.Wrap(err, "unable to impose ledger expiry")
		}

		run.Logger().Info("imposed expiry on ledgers",
			zap.Int("monitors", count),
			zap.Int("amount", expired),
		)
	} else {
		run.Logger().Debug("skipped expiry, few monitors",
			zap.Int("monitors", count),
			zap.Int("threshold", p.config.Threshold),
		)
	}

	err = p.setRun()
	if err != nil {
		return errors.Wrap(err, "error setting last run time")
	}

	return nil
}
