package common

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Run struct {
	ID     string
	Plugin string
	Launch time.Time

	ctx    context.Context
	logger *zap.Logger
}

func NewRun(plugin string) *Run {
	return &Run{
		ID:     uuid.New().String(),
		Plugin: plugin,
		Launch: time.Now(),
	}
}
