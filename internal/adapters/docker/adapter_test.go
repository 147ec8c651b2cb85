package docker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih/lighthouse-executor/internal/core/domain"
)

type fakeEngine struct {
	pullRef    string
	pullBody   string
	pullErr    error
	createCfg  *container.Config
	createHost *container.HostConfig
	createName string
	createErr  error
	startedID  string
	listOpts   container.ListOptions
	listResult []types.Container
	removedID  string
	removeOpts container.RemoveOptions
}

func (f *fakeEngine) ImagePull(_ context.Context, ref string, _ image.PullOptions) (io.ReadCloser, error) {
	f.pullRef = ref
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	return io.NopCloser(strings.NewReader(f.pullBody)), nil
}

func (f *fakeEngine) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.createCfg, f.createHost, f.createName = cfg, host, name
	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	return container.CreateResponse{ID: "cid-" + name}, nil
}

func (f *fakeEngine) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	f.startedID = id
	return nil
}

func (f *fakeEngine) ContainerList(_ context.Context, opts container.ListOptions) ([]types.Container, error) {
	f.listOpts = opts
	return f.listResult, nil
}

func (f *fakeEngine) ContainerRemove(_ context.Context, id string, opts container.RemoveOptions) error {
	f.removedID, f.removeOpts = id, opts
	return nil
}

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	return types.Ping{APIVersion: "1.45"}, nil
}

func (f *fakeEngine) Close() error { return nil }

func TestPullImage(t *testing.T) {
	fake := &fakeEngine{pullBody: `{"status":"Pulling from library/node"}` + "\n" + `{"status":"Done"}`}
	a := &Adapter{cli: fake}

	require.NoError(t, a.PullImage(context.Background(), "node", "6"))
	assert.Equal(t, "node:6", fake.pullRef)
}

func TestPullImage_StreamError(t *testing.T) {
	fake := &fakeEngine{pullBody: `{"errorDetail":{"message":"manifest unknown"},"error":"manifest unknown"}`}
	a := &Adapter{cli: fake}

	err := a.PullImage(context.Background(), "node", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest unknown")
}

func TestPullImage_RequestError(t *testing.T) {
	cause := errors.New("connection refused")
	a := &Adapter{cli: &fakeEngine{pullErr: cause}}

	assert.Same(t, cause, a.PullImage(context.Background(), "node", "6"))
}

func TestCreateContainer_MapsSpec(t *testing.T) {
	fake := &fakeEngine{}
	a := &Adapter{cli: fake}

	handle, err := a.CreateContainer(context.Background(), domain.ContainerSpec{
		Name:        "1992-build",
		Image:       "node:6",
		Entrypoint:  []string{"/entry.sh"},
		Cmd:         []string{"run"},
		Env:         []string{"A=B"},
		Labels:      map[string]string{"sdbuild": "1992"},
		Resources:   domain.Resources{MemoryBytes: 100, MemorySwapBytes: 200},
		VolumesFrom: []string{"support:rw"},
		Privileged:  true,
		Binds:       []string{"/a:/b"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ContainerHandle{ID: "cid-1992-build", Name: "1992-build"}, handle)
	assert.Equal(t, "1992-build", fake.createName)
	assert.Equal(t, "node:6", fake.createCfg.Image)
	assert.Equal(t, []string{"/entry.sh"}, []string(fake.createCfg.Entrypoint))
	assert.Equal(t, []string{"run"}, []string(fake.createCfg.Cmd))
	assert.Equal(t, map[string]string{"sdbuild": "1992"}, fake.createCfg.Labels)
	assert.Equal(t, int64(100), fake.createHost.Memory)
	assert.Equal(t, int64(200), fake.createHost.MemorySwap)
	assert.Equal(t, []string{"support:rw"}, fake.createHost.VolumesFrom)
	assert.True(t, fake.createHost.Privileged)
	assert.Equal(t, []string{"/a:/b"}, fake.createHost.Binds)
}

func TestListContainers_FiltersByLabel(t *testing.T) {
	fake := &fakeEngine{listResult: []types.Container{
		{ID: "a", Names: []string{"/1992-init"}},
		{ID: "b", Names: []string{"/1992-build"}},
		{ID: "c"},
	}}
	a := &Adapter{cli: fake}

	handles, err := a.ListContainers(context.Background(), domain.TrackingLabel{Key: "sdbuild", Value: "1992"}, true)
	require.NoError(t, err)

	assert.True(t, fake.listOpts.All)
	assert.Equal(t, []string{"sdbuild=1992"}, fake.listOpts.Filters.Get("label"))
	assert.Equal(t, []domain.ContainerHandle{
		{ID: "a", Name: "1992-init"},
		{ID: "b", Name: "1992-build"},
		{ID: "c"},
	}, handles)
}

func TestStartAndRemove(t *testing.T) {
	fake := &fakeEngine{}
	a := &Adapter{cli: fake}

	require.NoError(t, a.StartContainer(context.Background(), domain.ContainerHandle{ID: "x"}))
	assert.Equal(t, "x", fake.startedID)

	require.NoError(t, a.RemoveContainer(context.Background(), domain.ContainerHandle{ID: "y"}, domain.RemoveOptions{DeleteVolumes: true, Force: true}))
	assert.Equal(t, "y", fake.removedID)
	assert.True(t, fake.removeOpts.RemoveVolumes)
	assert.True(t, fake.removeOpts.Force)

	assert.NoError(t, a.Ping(context.Background()))
}
