package ports

import "github.com/melih/lighthouse-executor/internal/core/domain"

// Names are the deterministic names and label of one build's containers.
type Names struct {
	Support string
	Build   string
	Label   domain.TrackingLabel
}

// Topology decides which containers make up a build and how they are configured.
// Implementations must be pure: the same inputs always yield the same specs.
type Topology interface {
	// SupportSpec returns the spec of the non-executing container that owns
	// the filesystem layer mounted by the build container.
	SupportSpec(req domain.BuildRequest, names Names, launcher domain.ImageReference) domain.ContainerSpec
	// BuildSpec returns the spec of the container that runs the build.
	// supportID is the runtime id assigned to the support container.
	BuildSpec(req domain.BuildRequest, names Names, image domain.ImageReference, supportID string) domain.ContainerSpec
}
