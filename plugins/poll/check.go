package poll

import (
	"context"
	"time"

	lock "github.com/bsm/redis-lock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.com/Cacophony/Monitor/metrics"
	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/monitor"
	"gitlab.com/Cacophony/Monitor/pkg/source"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

type lockedMonitor struct {
	descriptor monitor.Descriptor
	locker     *lock.Locker
}

func (p *Plugin) checkBundles(run *common.Run, bundles checkBundle, now time.Time) {
	run.Logger().Debug("checking bundles",
		zap.Int("amount", len(bundles)),
	)

	limit := p.config.Concurrency
	if limit < 1 {
		limit = 1
	}

	var group errgroup.Group
	group.SetLimit(limit)

	for info, descriptors := range bundles {
		if run.Context().Err() != nil {
			break
		}

		info, descriptors := info, descriptors
		group.Go(func() error {
			p.checkBundle(run, info, descriptors, now)
			return nil
		})
	}

	group.Wait() // nolint: errcheck
}

func (p *Plugin) checkBundle(run *common.Run, info checkBundleInfo, descriptors []monitor.Descriptor, now time.Time) {
	// in-flight calls finish on shutdown, only new work is refused
	ctx := context.WithoutCancel(run.Context())

	logger := run.Logger().With(
		zap.String("source_type", info.Type.String()),
		zap.String("source_url", info.URL),
	)

	locked := make([]lockedMonitor, 0, len(descriptors))
	defer func() {
		for _, item := range locked {
			err := item.locker.Unlock()
			if err != nil {
				run.Except(err, "monitor_key", item.descriptor.Key())
			}
		}
	}()

	for _, descriptor := range descriptors {
		if run.Context().Err() != nil {
			return
		}

		key := descriptor.Key()
		locker := p.getMonitorLock(key)

		ok, err := locker.LockWithContext(ctx)
		if err != nil {
			run.Except(err, "monitor_key", key)
			continue
		}
		if !ok {
			logger.Debug("skipped monitor, it is being checked elsewhere",
				zap.String("monitor_key", key),
			)
			continue
		}
		locked = append(locked, lockedMonitor{descriptor: descriptor, locker: locker})
	}

	// another process may have checked between the scan and taking the lock
	due := make([]monitor.Descriptor, 0, len(locked))
	for _, item := range locked {
		isDue, err := p.shouldCheck(ctx, item.descriptor.Key(), item.descriptor.Interval(), now)
		if err != nil {
			run.Except(err, "monitor_key", item.descriptor.Key())
			continue
		}
		if isDue {
			due = append(due, item.descriptor)
		}
	}
	if len(due) == 0 {
		return
	}

	metrics.Fetches.Add(1)
	items, err := p.fetcher.Fetch(ctx, info.Type, info.URL)
	if err != nil {
		metrics.FetchErrors.Add(1)
		run.Except(err, "source_type", info.Type.String(), "source_url", info.URL)
		return
	}

	// the marker is left alone, an empty source is retried on the next pass
	// TODO: tell a quiet source apart from a transient empty response so quiet sources keep their interval
	if len(items) == 0 {
		logger.Debug("source returned no items")
		return
	}

	for _, descriptor := range due {
		if run.Context().Err() != nil {
			return
		}

		p.checkMonitor(ctx, run, descriptor, items, now)
	}
}

// checkMonitor delivers every item not yet in the ledger of the monitor, oldest first
func (p *Plugin) checkMonitor(
	ctx context.Context,
	run *common.Run,
	descriptor monitor.Descriptor,
	items []source.Item,
	now time.Time,
) {
	key := descriptor.Key()
	logger := run.Logger().With(
		zap.String("monitor_key", key),
		zap.String("channel_id", descriptor.ChannelID),
	)

	err := p.setChecked(ctx, key, now)
	if err != nil {
		run.Except(err, "monitor_key", key)
	}

	repaired, err := p.ledger.EnsureSetType(ctx, key)
	if err != nil {
		run.Except(err, "monitor_key", key)
		return
	}
	if repaired {
		logger.Warn("reset ledger holding the wrong type")
	}

	var delivered int
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]

		seen, err := p.ledger.IsDelivered(ctx, key, item.StableID)
		if err != nil {
			run.Except(err, "monitor_key", key, "item_id", item.StableID)
			continue
		}
		if seen {
			continue
		}

		err = p.sink.Send(ctx, descriptor.ChannelID, delivery.FormatItem(item))
		if err != nil {
			metrics.DeliveryFailures.Add(1)
			run.Except(err, "monitor_key", key, "channel_id", descriptor.ChannelID, "item_id", item.StableID)
			continue
		}
		metrics.Deliveries.Add(1)

		// an item sent but not recorded is sent again on the next check
		err = p.ledger.MarkDelivered(ctx, key, item.StableID)
		if err != nil {
			run.Except(err, "monitor_key", key, "item_id", item.StableID)
			continue
		}
		delivered++
	}

	if delivered > 0 {
		logger.Info("delivered items",
			zap.Int("amount", delivered),
		)
	}
}
