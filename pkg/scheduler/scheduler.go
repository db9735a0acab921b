package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/plugins"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

// Clock abstracts time so tests can fast-forward the loop
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Scheduler runs every plugin in its own loop, waiting the plugin interval after each run
type Scheduler struct {
	logger  *zap.Logger
	plugins []plugins.Plugin
	clock   Clock
}

func NewScheduler(
	logger *zap.Logger,
	pluginList []plugins.Plugin,
) *Scheduler {
	return &Scheduler{
		logger:  logger,
		plugins: pluginList,
		clock:   realClock{},
	}
}

// WithClock replaces the wall clock
func (s *Scheduler) WithClock(clock Clock) *Scheduler {
	s.clock = clock
	return s
}

// Start blocks until ctx is cancelled and every in-flight run has returned
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup

	for _, plugin := range s.plugins {
		wg.Add(1)
		go func(plugin plugins.Plugin) {
			defer wg.Done()
			s.loop(ctx, plugin)
		}(plugin)
	}

	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, plugin plugins.Plugin) {
	for {
		if ctx.Err() != nil {
			return
		}

		s.run(ctx, plugin)

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(plugin.Interval()):
		}
	}
}

func (s *Scheduler) run(ctx context.Context, plugin plugins.Plugin) {
	run := common.NewRun(plugin.Name())
	run.Launch = s.clock.Now()

	logger := s.logger.With(
		zap.String("plugin", plugin.Name()),
		zap.String("launch", run.Launch.String()),
		zap.String("run_id", run.ID),
	)

	run.WithContext(ctx)
	run.WithLogger(logger)

	err := plugin.Run(run)
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("run interrupted by shutdown", zap.Error(err))
			return
		}

		logger.Error("run execution failed",
			zap.Error(err),
		)
	}
}
