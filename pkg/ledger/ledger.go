// Package ledger records which items have been delivered for a monitor.
//
// Every monitor owns one Redis set at monitor:{scope}:{url}:sent. The set's TTL is reset to
// Retention on every insert, so a monitor that keeps delivering never loses its history, while one
// that stays quiet for longer than Retention loses all of it at once.
package ledger

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"gitlab.com/Cacophony/Monitor/pkg/monitor"
)

// Retention is how long a dedup set survives its most recent insert
const Retention = 7 * 24 * time.Hour

const scanCount = 100

// Ledger is the dedup ledger stored in Redis
type Ledger struct {
	redis *redis.Client
}

// New creates a Ledger
func New(client *redis.Client) *Ledger {
	return &Ledger{
		redis: client,
	}
}

// IsDelivered reports whether itemID was delivered for the monitor
func (l *Ledger) IsDelivered(ctx context.Context, monitorKey, itemID string) (bool, error) {
	delivered, err := l.redis.WithContext(ctx).SIsMember(monitor.SentKey(monitorKey), itemID).Result()
	if err != nil {
		return false, errors.Wrap(err, "unable to check ledger")
	}
	return delivered, nil
}

// MarkDelivered records itemID and slides the expiration of the whole set
func (l *Ledger) MarkDelivered(ctx context.Context, monitorKey, itemID string) error {
	key := monitor.SentKey(monitorKey)

	_, err := l.redis.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.SAdd(key, itemID)
		pipe.Expire(key, Retention)
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "unable to mark item as delivered")
	}
	return nil
}

// EnsureSetType deletes the dedup key if it holds anything other than a set
func (l *Ledger) EnsureSetType(ctx context.Context, monitorKey string) (bool, error) {
	key := monitor.SentKey(monitorKey)
	client := l.redis.WithContext(ctx)

	keyType, err := client.Type(key).Result()
	if err != nil {
		return false, errors.Wrap(err, "unable to read ledger type")
	}
	if keyType == "set" || keyType == "none" {
		return false, nil
	}

	err = client.Del(key).Err()
	if err != nil {
		return false, errors.Wrapf(err, "unable to delete ledger of type %s", keyType)
	}
	return true, nil
}

// Size returns the number of delivered items recorded for the monitor
func (l *Ledger) Size(ctx context.Context, monitorKey string) (int64, error) {
	size, err := l.redis.WithContext(ctx).SCard(monitor.SentKey(monitorKey)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "unable to read ledger size")
	}
	return size, nil
}

// ImposeExpiry applies Retention to every dedup set without an expiration, it returns how many it
// updated
func (l *Ledger) ImposeExpiry(ctx context.Context) (int, error) {
	client := l.redis.WithContext(ctx)

	var updated int
	var cursor uint64
	for {
		keys, next, err := client.Scan(cursor, monitor.SentPattern(), scanCount).Result()
		if err != nil {
			return updated, errors.Wrap(err, "unable to scan ledgers")
		}

		for _, key := range keys {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}

			// TTL replies -1 for keys without expiration and -2 for missing keys
			ttl, err := client.Do("TTL", key).Int64()
			if err != nil {
				return updated, errors.Wrapf(err, "unable to read ttl of %s", key)
			}
			if ttl != -1 {
				continue
			}

			ok, err := client.Expire(key, Retention).Result()
			if err != nil {
				return updated, errors.Wrapf(err, "unable to expire %s", key)
			}
			if ok {
				updated++
			}
		}

		cursor = next
		if cursor == 0 {
			return updated, nil
		}
	}
}
