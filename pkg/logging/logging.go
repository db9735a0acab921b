package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment selects the logger configuration
type Environment string

const (
	// DevelopmentEnvironment logs human readable lines from debug level on
	DevelopmentEnvironment Environment = "development"
	// ProductionEnvironment logs JSON from info level on
	ProductionEnvironment Environment = "production"
)

// NewLogger creates a logger for service
func NewLogger(environment Environment, service string) (*zap.Logger, error) {
	var config zap.Config
	switch environment {
	case ProductionEnvironment:
		config = zap.NewProductionConfig()
	case DevelopmentEnvironment:
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, errors.Errorf("unknown environment %q", environment)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "unable to build logger")
	}

	return logger.With(zap.String("service", service)), nil
}
