package main

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"gitlab.com/Cacophony/Monitor/pkg/delivery"
	"gitlab.com/Cacophony/Monitor/pkg/monitor"
)

type config struct {
	DiscordToken  string `envconfig:"DISCORD_TOKEN"`
	RedisAddress  string `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

type app struct {
	registry *monitor.Registry
	redis    *redis.Client
	scope    string
	timeout  time.Duration
	now      func() time.Time
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "monitorctl",
		Short: "Manage monitored sources",
		Long: `monitorctl manages the sources watched by the monitor worker.

Examples:
  monitorctl add --scope 123 --channel 456 --type feed https://example.com/feed.xml
  monitorctl list --scope 123
  monitorctl edit --scope 123 --interval 15 https://example.com/feed.xml
  monitorctl remove --scope 123 https://example.com/feed.xml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.redis == nil {
				return nil
			}
			return a.redis.Close()
		},
	}

	root.PersistentFlags().StringVar(&a.scope, "scope", "", "server the monitors belong to")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "timeout of store and API calls")
	_ = root.MarkPersistentFlagRequired("scope")

	root.AddCommand(
		newAddCommand(a),
		newRemoveCommand(a),
		newListCommand(a),
		newEditCommand(a),
	)

	return root
}

// connect builds the registry from the environment unless one was supplied
func (a *app) connect() error {
	if a.now == nil {
		a.now = time.Now
	}
	if a.registry != nil {
		return nil
	}

	var config config
	err := envconfig.Process("", &config)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     config.RedisAddress,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	var resolver monitor.ChannelResolver
	if config.DiscordToken != "" {
		session, err := discordgo.New("Bot " + config.DiscordToken)
		if err != nil {
			return errors.Wrap(err, "unable to initialise Discord session")
		}
		resolver = delivery.NewDiscordResolver(session)
	}

	a.registry = monitor.NewRegistry(a.redis, resolver)

	return nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.timeout)
}

// describe turns registry errors into messages for the operator
func describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Cause(err) == monitor.ErrAlreadyExists:
		return errors.New("this source is already being monitored in this server")
	case errors.Cause(err) == monitor.ErrNotFound:
		return errors.New("no such monitored source found")
	case monitor.IsInvalidInput(err):
		return errors.Cause(err)
	}
	return err
}
