// Package executor sequences the runtime calls that start and stop a build.
//
// Start pulls the launcher and build images concurrently, creates the support
// container, creates the build container mounting the support container's
// volumes, and starts the build container, strictly in that order. Nothing is
// rolled back on failure: containers created before the failing step stay on
// the runtime until Stop is called.
//
// Stop keeps no local state. It finds a build's containers through the
// tracking label and removes them concurrently, so it is safe to call however
// far Start progressed, and any number of times.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/imageref"
	"github.com/melih/lighthouse-executor/internal/core/naming"
	"github.com/melih/lighthouse-executor/internal/core/ports"
	"github.com/melih/lighthouse-executor/internal/logger"
)

// Config holds the executor settings that do not change between builds.
type Config struct {
	// LauncherImage is the image of the support container, e.g. "lighthouse/launcher:stable".
	LauncherImage string
	// Prefix namespaces names and labels so several executors can share one runtime.
	Prefix string
}

// statsSource is implemented by runtimes that track call statistics.
type statsSource interface {
	Stats() domain.Stats
}

// Service implements ports.ExecutorService.
type Service struct {
	runtime  ports.ContainerRuntime
	topology ports.Topology
	launcher domain.ImageReference
	prefix   string
	log      *slog.Logger
}

var _ ports.ExecutorService = (*Service)(nil)

// New validates cfg and returns a Service. A nil log falls back to slog.Default.
func New(rt ports.ContainerRuntime, topo ports.Topology, cfg Config, log *slog.Logger) (*Service, error) {
	launcher, err := imageref.Resolve(cfg.LauncherImage)
	if err != nil {
		return nil, fmt.Errorf("launcher image: %w", err)
	}
	if err := naming.ValidatePrefix(cfg.Prefix); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		runtime:  rt,
		topology: topo,
		launcher: launcher,
		prefix:   cfg.Prefix,
		log:      log,
	}, nil
}

// Start creates and starts the containers of one build. Errors are returned
// exactly as produced by the resolver or the runtime.
func (s *Service) Start(ctx context.Context, req domain.BuildRequest) error {
	names, err := naming.For(s.prefixFor(req.NamePrefix), req.BuildID)
	if err != nil {
		return err
	}
	image, err := imageref.Resolve(req.Image)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx, s.log).With("build_id", req.BuildID, "label", names.Label.Filter())

	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range []domain.ImageReference{s.launcher, image} {
		g.Go(func() error {
			return s.runtime.PullImage(gctx, ref.Repository, ref.Tag)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("image pull failed", "image", image.String(), "launcher", s.launcher.String(), "error", err)
		return err
	}
	log.Debug("images pulled", "image", image.String(), "launcher", s.launcher.String())

	support, err := s.runtime.CreateContainer(ctx, s.topology.SupportSpec(req, names, s.launcher))
	if err != nil {
		log.Error("support container create failed", "name", names.Support, "error", err)
		return err
	}
	log.Debug("support container created", "name", names.Support, "id", support.ID)

	build, err := s.runtime.CreateContainer(ctx, s.topology.BuildSpec(req, names, image, support.ID))
	if err != nil {
		log.Error("build container create failed", "name", names.Build, "error", err)
		return err
	}

	if err := s.runtime.StartContainer(ctx, build); err != nil {
		log.Error("build container start failed", "name", names.Build, "id", build.ID, "error", err)
		return err
	}

	log.Info("build started", "image", image.String(), "container", build.ID)
	return nil
}

// Stop removes every container carrying the build's tracking label,
// including stopped ones. Removals run concurrently and are never cancelled
// once dispatched; the first failure observed is returned after all of them
// have finished.
func (s *Service) Stop(ctx context.Context, req domain.StopRequest) error {
	names, err := naming.For(s.prefixFor(req.NamePrefix), req.BuildID)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx, s.log).With("build_id", req.BuildID, "label", names.Label.Filter())

	handles, err := s.runtime.ListContainers(ctx, names.Label, true)
	if err != nil {
		log.Error("listing build containers failed", "error", err)
		return err
	}

	var g errgroup.Group
	for _, h := range handles {
		g.Go(func() error {
			err := s.runtime.RemoveContainer(ctx, h, domain.RemoveOptions{DeleteVolumes: true, Force: true})
			if err != nil {
				log.Warn("container remove failed", "id", h.ID, "name", h.Name, "error", err)
				return err
			}
			log.Debug("container removed", "id", h.ID, "name", h.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("build stopped", "removed", len(handles))
	return nil
}

// Stats reports runtime call statistics. Runtimes that do not track them
// report zero counters and a closed breaker.
func (s *Service) Stats() domain.Stats {
	if src, ok := s.runtime.(statsSource); ok {
		return src.Stats()
	}
	return domain.Stats{Breaker: domain.BreakerStats{IsClosed: true, State: "closed"}}
}

// Periodic and frozen builds are not supported by this executor.

func (s *Service) StartPeriodic(context.Context, domain.BuildRequest) error { return nil }

func (s *Service) StopPeriodic(context.Context, domain.StopRequest) error { return nil }

func (s *Service) StartFrozen(context.Context, domain.BuildRequest) error { return nil }

func (s *Service) StopFrozen(context.Context, domain.StopRequest) error { return nil }

func (s *Service) prefixFor(requested string) string {
	if requested != "" {
		return requested
	}
	return s.prefix
}
