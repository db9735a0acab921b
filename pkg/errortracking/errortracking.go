package errortracking

import (
	raven "github.com/getsentry/raven-go"
	"github.com/pkg/errors"
)

// Config configures Sentry reporting, an empty DSN disables it
type Config struct {
	DSN         string `envconfig:"DSN"`
	Version     string `envconfig:"-"`
	Environment string `envconfig:"-"`
}

// Init configures the default raven client
func Init(config *Config) error {
	if config == nil || config.DSN == "" {
		return nil
	}

	err := raven.SetDSN(config.DSN)
	if err != nil {
		return errors.Wrap(err, "unable to set sentry dsn")
	}

	raven.SetRelease(config.Version)
	raven.SetEnvironment(config.Environment)

	return nil
}

// Capture reports err with tags if error tracking is configured
func Capture(err error, tags map[string]string) {
	if err == nil || raven.DefaultClient == nil || raven.DefaultClient.URL() == "" {
		return
	}

	raven.CaptureError(err, tags)
}
