// Package guarded wraps a container runtime with the executor's shared
// circuit breaker.
package guarded

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/melih/lighthouse-executor/internal/breaker"
	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
)

// Operation names, used in errors and span names.
const (
	OpPull   = "pull"
	OpCreate = "create"
	OpStart  = "start"
	OpList   = "list"
	OpRemove = "remove"
)

// Runtime is a ports.ContainerRuntime whose every call passes through one
// breaker. All builds share the breaker, so a failure burst from one build
// can short-circuit calls made for another.
type Runtime struct {
	next    ports.ContainerRuntime
	breaker *breaker.Breaker
	tracer  trace.Tracer
	log     *slog.Logger
}

var _ ports.ContainerRuntime = (*Runtime)(nil)

func New(next ports.ContainerRuntime, b *breaker.Breaker, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		next:    next,
		breaker: b,
		tracer:  otel.Tracer("github.com/melih/lighthouse-executor/internal/adapters/guarded"),
		log:     log,
	}
}

// Stats reports the breaker counters in the executor's stats shape.
func (r *Runtime) Stats() domain.Stats {
	s := r.breaker.Stats()
	return domain.Stats{
		Requests: domain.RequestStats{
			Total:       s.Total,
			Timeouts:    s.Timeouts,
			Success:     s.Success,
			Failure:     s.Failure,
			Concurrent:  s.Concurrent,
			AverageTime: float64(s.AverageLatency.Microseconds()) / 1000,
		},
		Breaker: domain.BreakerStats{
			IsClosed: s.IsClosed(),
			State:    s.State.String(),
		},
	}
}

func (r *Runtime) PullImage(ctx context.Context, repository, tag string) error {
	return r.call(ctx, OpPull, []attribute.KeyValue{
		attribute.String("image.repository", repository),
		attribute.String("image.tag", tag),
	}, func(ctx context.Context) error {
		return r.next.PullImage(ctx, repository, tag)
	})
}

func (r *Runtime) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerHandle, error) {
	var handle domain.ContainerHandle
	err := r.call(ctx, OpCreate, []attribute.KeyValue{
		attribute.String("container.name", spec.Name),
		attribute.String("container.image", spec.Image),
	}, func(ctx context.Context) error {
		h, err := r.next.CreateContainer(ctx, spec)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		// On timeout fn may still be running; never read what it captured.
		return domain.ContainerHandle{}, err
	}
	return handle, nil
}

func (r *Runtime) StartContainer(ctx context.Context, handle domain.ContainerHandle) error {
	return r.call(ctx, OpStart, handleAttrs(handle), func(ctx context.Context) error {
		return r.next.StartContainer(ctx, handle)
	})
}

func (r *Runtime) ListContainers(ctx context.Context, label domain.TrackingLabel, includeStopped bool) ([]domain.ContainerHandle, error) {
	var handles []domain.ContainerHandle
	err := r.call(ctx, OpList, []attribute.KeyValue{
		attribute.String("label", label.Filter()),
		attribute.Bool("include_stopped", includeStopped),
	}, func(ctx context.Context) error {
		hs, err := r.next.ListContainers(ctx, label, includeStopped)
		if err != nil {
			return err
		}
		handles = hs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handles, nil
}

func (r *Runtime) RemoveContainer(ctx context.Context, handle domain.ContainerHandle, opts domain.RemoveOptions) error {
	return r.call(ctx, OpRemove, handleAttrs(handle), func(ctx context.Context) error {
		return r.next.RemoveContainer(ctx, handle, opts)
	})
}

// call runs fn through the breaker and converts the outcome into the
// executor's error kinds.
func (r *Runtime) call(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "runtime."+op, trace.WithAttributes(attrs...))
	defer span.End()

	err := r.breaker.Run(ctx, fn)
	if err == nil {
		return nil
	}

	if errors.Is(err, breaker.ErrOpen) {
		span.SetStatus(codes.Error, "circuit open")
		r.log.Warn("runtime call short-circuited", "op", op)
		return &domain.CircuitOpenError{Op: op}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return &domain.RuntimeCallError{Op: op, Err: err, Timeout: errors.Is(err, breaker.ErrTimeout)}
}

func handleAttrs(h domain.ContainerHandle) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("container.id", h.ID),
		attribute.String("container.name", h.Name),
	}
}
