// Package topology builds the container specs that make up one build.
package topology

import (
	"strconv"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
)

// Paths inside the launcher layer, shared with the build container via VolumesFrom.
const (
	NoopEntrypoint     = "/bin/true"
	LauncherEntrypoint = "/opt/lighthouse/launcher_entrypoint.sh"
	RunScript          = "/opt/lighthouse/run.sh"
)

// Options configure the Standard topology.
type Options struct {
	Resources  domain.Resources
	Privileged bool
	Binds      []string
}

// Standard is a two-container topology: a support container created from the
// launcher image that is never started, and the build container that mounts
// its volumes and runs the launcher.
type Standard struct {
	opts Options
}

var _ ports.Topology = (*Standard)(nil)

func NewStandard(opts Options) *Standard {
	return &Standard{opts: opts}
}

func (s *Standard) SupportSpec(req domain.BuildRequest, names ports.Names, launcher domain.ImageReference) domain.ContainerSpec {
	return domain.ContainerSpec{
		Name:       names.Support,
		Image:      launcher.String(),
		Entrypoint: []string{NoopEntrypoint},
		Labels:     names.Label.Map(),
	}
}

// BuildSpec assembles the launcher contract. The launcher reads its arguments
// positionally: token, api uri, store uri, timeout (minutes), build id, ui uri.
func (s *Standard) BuildSpec(req domain.BuildRequest, names ports.Names, image domain.ImageReference, supportID string) domain.ContainerSpec {
	timeout := strconv.Itoa(req.Timeout())

	return domain.ContainerSpec{
		Name:       names.Build,
		Image:      image.String(),
		Entrypoint: []string{LauncherEntrypoint},
		Cmd: []string{
			RunScript,
			req.Token,
			req.Endpoints.API,
			req.Endpoints.Store,
			timeout,
			req.BuildID,
			req.Endpoints.UI,
		},
		Env: []string{
			"LIGHTHOUSE_BUILD_ID=" + req.BuildID,
			"LIGHTHOUSE_API_URI=" + req.Endpoints.API,
			"LIGHTHOUSE_STORE_URI=" + req.Endpoints.Store,
			"LIGHTHOUSE_UI_URI=" + req.Endpoints.UI,
			"LIGHTHOUSE_BUILD_TIMEOUT=" + timeout,
		},
		Labels:      names.Label.Map(),
		Resources:   s.opts.Resources,
		VolumesFrom: []string{supportID + ":rw"},
		Privileged:  s.opts.Privileged,
		Binds:       append([]string(nil), s.opts.Binds...),
	}
}
