package docker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
)

// engineAPI is the subset of the Docker Engine client used by the adapter.
type engineAPI interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Ping(ctx context.Context) (types.Ping, error)
	Close() error
}

// Options select the Docker endpoint. Empty values fall back to the
// standard DOCKER_* environment variables.
type Options struct {
	Host       string
	APIVersion string
}

// Adapter implements ports.ContainerRuntime using the Docker SDK.
// Runtime errors are returned as the engine reported them.
type Adapter struct {
	cli engineAPI
}

var (
	_ ports.ContainerRuntime = (*Adapter)(nil)
	_ ports.Pinger           = (*Adapter)(nil)
)

// NewAdapter creates a new Docker adapter instance
func NewAdapter(opts Options) (*Adapter, error) {
	clientOpts := []client.Opt{client.FromEnv}
	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	if opts.APIVersion != "" {
		clientOpts = append(clientOpts, client.WithVersion(opts.APIVersion))
	} else {
		clientOpts = append(clientOpts, client.WithAPIVersionNegotiation())
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Adapter{cli: cli}, nil
}

// PullImage pulls repository:tag and waits for the pull to finish.
func (a *Adapter) PullImage(ctx context.Context, repository, tag string) error {
	ref := domain.ImageReference{Repository: repository, Tag: tag}.String()

	reader, err := a.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	// The engine reports most pull failures inside the progress stream, so
	// it has to be decoded rather than just drained.
	return jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil)
}

// CreateContainer creates, but does not start, a container from spec.
func (a *Adapter) CreateContainer(ctx context.Context, spec domain.ContainerSpec) (domain.ContainerHandle, error) {
	cfg := &container.Config{
		Image:      spec.Image,
		Entrypoint: spec.Entrypoint,
		Cmd:        spec.Cmd,
		Env:        spec.Env,
		Labels:     spec.Labels,
	}
	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:     spec.Resources.MemoryBytes,
			MemorySwap: spec.Resources.MemorySwapBytes,
		},
		VolumesFrom: spec.VolumesFrom,
		Privileged:  spec.Privileged,
		Binds:       spec.Binds,
	}

	resp, err := a.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return domain.ContainerHandle{}, err
	}
	return domain.ContainerHandle{ID: resp.ID, Name: spec.Name}, nil
}

func (a *Adapter) StartContainer(ctx context.Context, handle domain.ContainerHandle) error {
	return a.cli.ContainerStart(ctx, handle.ID, container.StartOptions{})
}

// ListContainers returns the containers carrying label.
func (a *Adapter) ListContainers(ctx context.Context, label domain.TrackingLabel, includeStopped bool) ([]domain.ContainerHandle, error) {
	containers, err := a.cli.ContainerList(ctx, container.ListOptions{
		All:     includeStopped,
		Filters: filters.NewArgs(filters.Arg("label", label.Filter())),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.ContainerHandle, 0, len(containers))
	for _, c := range containers {
		// Use the first name if available, remove slash
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, domain.ContainerHandle{ID: c.ID, Name: name})
	}
	return result, nil
}

func (a *Adapter) RemoveContainer(ctx context.Context, handle domain.ContainerHandle, opts domain.RemoveOptions) error {
	return a.cli.ContainerRemove(ctx, handle.ID, container.RemoveOptions{
		RemoveVolumes: opts.DeleteVolumes,
		Force:         opts.Force,
	})
}

// Ping checks that the engine answers.
func (a *Adapter) Ping(ctx context.Context) error {
	_, err := a.cli.Ping(ctx)
	return err
}

// Close releases the underlying client connection.
func (a *Adapter) Close() error {
	return a.cli.Close()
}
