package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/api"
	"gitlab.com/Cacophony/Monitor/metrics"
	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/errortracking"
	"gitlab.com/Cacophony/Monitor/pkg/ledger"
	"gitlab.com/Cacophony/Monitor/pkg/logging"
	"gitlab.com/Cacophony/Monitor/pkg/monitor"
	"gitlab.com/Cacophony/Monitor/pkg/scheduler"
	"gitlab.com/Cacophony/Monitor/pkg/source"
	"gitlab.com/Cacophony/Monitor/plugins"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

const (
	// ServiceName is the name of the service
	ServiceName = "monitor"
)

func main() {
	// init config
	var config config
	err := envconfig.Process("", &config)
	if err != nil {
		panic(errors.Wrap(err, "unable to load configuration"))
	}
	config.ErrorTracking.Version = config.Hash
	config.ErrorTracking.Environment = config.ClusterEnvironment

	// init logger
	logger, err := logging.NewLogger(config.Environment, ServiceName)
	if err != nil {
		panic(errors.Wrap(err, "unable to initialise logger"))
	}
	defer logger.Sync() // nolint: errcheck

	// init raven
	err = errortracking.Init(&config.ErrorTracking)
	if err != nil {
		logger.Error("unable to initialise errortracking",
			zap.Error(err),
		)
	}

	metrics.Init()

	// init redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	_, err = redisClient.Ping().Result()
	if err != nil {
		logger.Fatal("unable to connect to Redis",
			zap.Error(err),
		)
	}

	// init discord, REST only
	session, err := discordgo.New("Bot " + config.DiscordToken)
	if err != nil {
		logger.Fatal("unable to initialise Discord session",
			zap.Error(err),
		)
	}

	requester := source.NewRequester(config.SourceTimeout, config.SourceRate, config.SourceUserAgent)

	// init plugins
	startParams := common.StartParameters{
		Redis:    redisClient,
		Registry: monitor.NewRegistry(redisClient, delivery.NewDiscordResolver(session)),
		Ledger:   ledger.New(redisClient),
		Fetcher:  source.NewSources(requester, config.SourceSocialBaseURL),
		Sink:     delivery.NewDiscord(session, config.DeliveryRate),
	}
	started := plugins.StartPlugins(
		logger.With(zap.String("feature", "start_plugins")),
		plugins.New(),
		startParams,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// init scheduler
	sched := scheduler.NewScheduler(
		logger.With(zap.String("feature", "scheduler")),
		started,
	)
	schedulerDone := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(schedulerDone)
	}()

	// init http server
	httpServer := api.NewHTTPServer(
		config.Port,
		api.New(logger.With(zap.String("feature", "api")), ServiceName, redisClient),
	)

	go func() {
		err := httpServer.ListenAndServe()
		if err != http.ErrServerClosed {
			logger.Fatal("http server error",
				zap.Error(err),
				zap.String("feature", "http-server"),
			)
		}
	}()

	logger.Info("service is running",
		zap.Int("port", config.Port),
		zap.Int("plugins", len(started)),
	)

	// wait for CTRL+C to stop the service
	<-ctx.Done()

	// shutdown features, in-flight runs finish first
	<-schedulerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	plugins.StopPlugins(
		logger.With(zap.String("feature", "stop_plugins")),
		started,
		common.StopParameters{
			Redis: redisClient,
		},
	)

	err = httpServer.Shutdown(shutdownCtx)
	if err != nil {
		logger.Error("unable to shutdown HTTP Server",
			zap.Error(err),
		)
	}

	err = redisClient.Close()
	if err != nil {
		logger.Error("unable to close Redis client",
			zap.Error(err),
		)
	}
}
