package domain

// ContainerHandle is the runtime-assigned identity of a container.
// It is only held for the duration of a single Start or Stop call.
type ContainerHandle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resources are the hard limits applied to a container.
type Resources struct {
	MemoryBytes     int64 `json:"memory_bytes"`
	MemorySwapBytes int64 `json:"memory_swap_bytes"`
}

// ContainerSpec describes a container to be created on the runtime.
// Specs are built once by a topology and never mutated afterwards.
type ContainerSpec struct {
	Name        string            `json:"name"`
	Image       string            `json:"image"`
	Entrypoint  []string          `json:"entrypoint,omitempty"`
	Cmd         []string          `json:"cmd,omitempty"`
	Env         []string          `json:"env,omitempty"`
	Labels      map[string]string `json:"labels"`
	Resources   Resources         `json:"resources"`
	VolumesFrom []string          `json:"volumes_from,omitempty"`
	Privileged  bool              `json:"privileged"`
	Binds       []string          `json:"binds,omitempty"`
}

// RemoveOptions controls how a container is removed.
type RemoveOptions struct {
	DeleteVolumes bool
	Force         bool
}

// TrackingLabelKey is the label key attached to every container of a build.
// Changing it orphans containers created by older executors.
const TrackingLabelKey = "sdbuild"

// TrackingLabel links a build to its containers on the runtime.
type TrackingLabel struct {
	Key   string
	Value string
}

// Filter renders the label as a runtime label filter ("key=value").
func (l TrackingLabel) Filter() string {
	return l.Key + "=" + l.Value
}

// Map returns the label as a container label set.
func (l TrackingLabel) Map() map[string]string {
	return map[string]string{l.Key: l.Value}
}
