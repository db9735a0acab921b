package ledgerexpiry

import (
	"time"

	lock "github.com/bsm/redis-lock"
	"github.com/go-redis/redis"
	jsoniter "github.com/json-iterator/go"
)

const (
	lockKey    = "cacophony:monitor:ledger-expiry:run-lock"
	lastRunKey = "cacophony:monitor:ledger-expiry:run-last"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (p *Plugin) getRunLock() *lock.Locker {
	return lock.New(
		p.redis,
		lockKey,
		&lock.Options{
			LockTimeout: 10 * time.Minute,
			RetryCount:  0, // do not retry
		},
	)
}

func (p *Plugin) shouldRun() (bool, error) {
	raw, err := p.redis.Get(lastRunKey).Bytes()
	if err == redis.Nil {
		return true, nil
	} else if err != nil {
		return false, err
	}

	var lastRun time.Time
	err = json.Unmarshal(raw, &lastRun)
	if err != nil {
		return false, err
	}

	if p.now().Sub(lastRun) < p.config.Interval {
		return false, nil
	}

	return true, nil
}

func (p *Plugin) setRun() error {
	raw, err := json.Marshal(p.now())
	if err != nil {
		return err
	}

	return p.redis.Set(lastRunKey, raw, p.config.Interval).Err()
}
