package ports

import (
	"context"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

// ContainerRuntime defines the runtime primitives the executor depends on.
// Docker is the only implementation today; the guarded runtime wraps any
// implementation with the shared breaker.
type ContainerRuntime interface {
	PullImage(ctx context.Context, repository, tag string) error
	CreateContainer(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerHandle, error)
	StartContainer(ctx context.Context, handle domain.ContainerHandle) error
	// ListContainers returns every container carrying label. Stopped
	// containers are included when includeStopped is set.
	ListContainers(ctx context.Context, label domain.TrackingLabel, includeStopped bool) ([]domain.ContainerHandle, error)
	RemoveContainer(ctx context.Context, handle domain.ContainerHandle, opts domain.RemoveOptions) error
}

// Pinger reports whether the runtime endpoint is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
