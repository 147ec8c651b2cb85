package ports

import (
	"context"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

// ExecutorService is the surface exposed to the calling orchestrator.
type ExecutorService interface {
	Start(ctx context.Context, req domain.BuildRequest) error
	Stop(ctx context.Context, req domain.StopRequest) error
	Stats() domain.Stats

	// Periodic and frozen builds are not supported by this executor kind;
	// these always succeed without effect.
	StartPeriodic(ctx context.Context, req domain.BuildRequest) error
	StopPeriodic(ctx context.Context, req domain.StopRequest) error
	StartFrozen(ctx context.Context, req domain.BuildRequest) error
	StopFrozen(ctx context.Context, req domain.StopRequest) error
}
