package poll

import (
	"context"
	"strconv"
	"time"

	lock "github.com/bsm/redis-lock"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"gitlab.com/Cacophony/Monitor/pkg/monitor"
)

const lockKeyPrefix = "cacophony:monitor:poll-lock:"

func (p *Plugin) getMonitorLock(monitorKey string) *lock.Locker {
	return lock.New(
		p.redis,
		lockKeyPrefix+monitorKey,
		&lock.Options{
			LockTimeout: p.config.LockTimeout,
			RetryCount:  0, // do not retry
		},
	)
}

// shouldCheck reports whether interval has elapsed since the last check of the monitor
func (p *Plugin) shouldCheck(ctx context.Context, monitorKey string, interval time.Duration, now time.Time) (bool, error) {
	raw, err := p.redis.WithContext(ctx).Get(monitor.LastCheckKey(monitorKey)).Result()
	if err == redis.Nil {
		return true, nil
	} else if err != nil {
		return false, errors.Wrap(err, "unable to read last check")
	}

	// unreadable markers count as never checked
	lastCheck, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true, nil
	}

	return now.Sub(time.UnixMilli(lastCheck)) >= interval, nil
}

func (p *Plugin) setChecked(ctx context.Context, monitorKey string, now time.Time) error {
	err := p.redis.WithContext(ctx).Set(
		monitor.LastCheckKey(monitorKey),
		strconv.FormatInt(now.UnixMilli(), 10),
		0,
	).Err()
	if err != nil {
		return errors.Wrap(err, "unable to write last check")
	}
	return nil
}
