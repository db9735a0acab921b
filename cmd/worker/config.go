package main

import (
	"time"

	"gitlab.com/Cacophony/Monitor/pkg/errortracking"
	"gitlab.com/Cacophony/Monitor/pkg/logging"
)

// nolint: lll
type config struct {
	Port                int                  `envconfig:"PORT" default:"8000"`
	Hash                string               `envconfig:"HASH"`
	Environment         logging.Environment  `envconfig:"ENVIRONMENT" default:"development"`
	ClusterEnvironment  string               `envconfig:"CLUSTER_ENVIRONMENT" default:"development"`
	DiscordToken        string               `envconfig:"DISCORD_TOKEN" required:"true"`
	RedisAddress        string               `envconfig:"REDIS_ADDRESS" default:"localhost:6379"`
	RedisPassword       string               `envconfig:"REDIS_PASSWORD"`
	RedisDB             int                  `envconfig:"REDIS_DB" default:"0"`
	SourceTimeout       time.Duration        `envconfig:"SOURCE_TIMEOUT" default:"10s"`
	SourceUserAgent     string               `envconfig:"SOURCE_USER_AGENT" default:"CacophonyMonitor/1.0"`
	SourceRate          float64              `envconfig:"SOURCE_RATE" default:"5"`
	SourceSocialBaseURL string               `envconfig:"SOURCE_SOCIAL_BASE_URL" default:"https://www.reddit.com"`
	DeliveryRate        float64              `envconfig:"DELIVERY_RATE" default:"20"`
	ErrorTracking       errortracking.Config `envconfig:"ERRORTRACKING"`
}
