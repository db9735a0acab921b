package stats

import (
	"runtime"
	"strconv"
	"time"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/metrics"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

// Key is the hash holding the runtime stats of the worker
const Key = "bot:metrics"

type Config struct {
	Interval time.Duration `envconfig:"STATS_INTERVAL" default:"30s"`
}

// Plugin persists the worker counters so they survive restarts and can be read by other services
type Plugin struct {
	logger *zap.Logger
	config Config
	redis  *redis.Client
	now    func() time.Time
}

func (p *Plugin) Name() string {
	return "stats"
}

func (p *Plugin) Interval() time.Duration {
	if p.config.Interval <= 0 {
		return 30 * time.Second
	}
	return p.config.Interval
}

func (p *Plugin) Start(params common.StartParameters) error {
	err := envconfig.Process("", &p.config)
	if err != nil {
		return errors.Wrap(err, "unable to load stats config")
	}

	p.logger = params.Logger
	p.redis = params.Redis
	p.now = time.Now

	return nil
}

// Stop writes the stats one last time
func (p *Plugin) Stop(params common.StopParameters) error {
	return p.persist(p.now())
}

func (p *Plugin) Run(run *common.Run) error {
	client := p.redis.WithContext(run.Context())

	now := p.now()

	err := client.Ping().Err()
	if err != nil {
		return errors.Wrap(err, "health check failed")
	}

	err = client.HSet(Key, "lastHealthCheck", strconv.FormatInt(now.UnixMilli(), 10)).Err()
	if err != nil {
		return errors.Wrap(err, "unable to store health check")
	}

	return p.persist(now)
}

func (p *Plugin) persist(now time.Time) error {
	startTime := time.Unix(metrics.Uptime.Value(), 0)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	err := p.redis.HMSet(Key, map[string]interface{}{
		"startTime":        strconv.FormatInt(startTime.UnixMilli(), 10),
		"uptime":           strconv.FormatInt(int64(now.Sub(startTime).Seconds()), 10),
		"passes":           metrics.Passes.String(),
		"monitors":         metrics.Monitors.String(),
		"deliveries":       metrics.Deliveries.String(),
		"deliveryFailures": metrics.DeliveryFailures.String(),
		"fetches":          metrics.Fetches.String(),
		"fetchErrors":      metrics.FetchErrors.String(),
		"memoryUsageMB":    strconv.FormatUint(memStats.HeapAlloc/1024/1024, 10),
	}).Err()
	if err != nil {
		return errors.Wrap(err, "unable to store stats")
	}

	return nil
}
