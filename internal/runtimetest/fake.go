// Package runtimetest provides an in-memory container runtime for tests.
package runtimetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/melih/lighthouse-executor/internal/core/domain"
	"github.com/melih/lighthouse-executor/internal/core/ports"
)

// Call records one invocation of the fake.
type Call struct {
	Op     string
	Image  string // pull: repository:tag
	Spec   domain.ContainerSpec
	Handle domain.ContainerHandle
	Label  domain.TrackingLabel
	All    bool
	Remove domain.RemoveOptions
}

// Runtime is a goroutine-safe fake that keeps created containers in memory.
// Set the *Err fields to inject failures.
type Runtime struct {
	mu         sync.Mutex
	calls      []Call
	containers map[string]stored
	seq        int

	PullErr   map[string]error // keyed by repository
	CreateErr map[string]error // keyed by container name
	StartErr  error
	ListErr   error
	RemoveErr map[string]error // keyed by container id

	// OnPull, when set, runs inside PullImage before it returns.
	OnPull func(ctx context.Context, repository string) error
}

type stored struct {
	handle  domain.ContainerHandle
	spec    domain.ContainerSpec
	started bool
}

var _ ports.ContainerRuntime = (*Runtime)(nil)

func New() *Runtime {
	return &Runtime{containers: map[string]stored{}}
}

func (r *Runtime) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Runtime) PullImage(ctx context.Context, repository, tag string) error {
	r.record(Call{Op: "pull", Image: repository + ":" + tag})
	if r.OnPull != nil {
		if err := r.OnPull(ctx, repository); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.PullErr[repository]
}

func (r *Runtime) CreateContainer(_ context.Context, spec domain.ContainerSpec) (domain.ContainerHandle, error) {
	r.record(Call{Op: "create", Spec: spec})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.CreateErr[spec.Name]; err != nil {
		return domain.ContainerHandle{}, err
	}
	r.seq++
	h := domain.ContainerHandle{ID: fmt.Sprintf("id-%d-%s", r.seq, spec.Name), Name: spec.Name}
	r.containers[h.ID] = stored{handle: h, spec: spec}
	return h, nil
}

func (r *Runtime) StartContainer(_ context.Context, handle domain.ContainerHandle) error {
	r.record(Call{Op: "start", Handle: handle})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StartErr != nil {
		return r.StartErr
	}
	c, ok := r.containers[handle.ID]
	if !ok {
		return fmt.Errorf("no such container: %s", handle.ID)
	}
	c.started = true
	r.containers[handle.ID] = c
	return nil
}

func (r *Runtime) ListContainers(_ context.Context, label domain.TrackingLabel, includeStopped bool) ([]domain.ContainerHandle, error) {
	r.record(Call{Op: "list", Label: label, All: includeStopped})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []domain.ContainerHandle
	for _, c := range r.containers {
		if c.spec.Labels[label.Key] != label.Value {
			continue
		}
		if !includeStopped && !c.started {
			continue
		}
		out = append(out, c.handle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Runtime) RemoveContainer(_ context.Context, handle domain.ContainerHandle, opts domain.RemoveOptions) error {
	r.record(Call{Op: "remove", Handle: handle, Remove: opts})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.RemoveErr[handle.ID]; err != nil {
		return err
	}
	if _, ok := r.containers[handle.ID]; !ok {
		return fmt.Errorf("no such container: %s", handle.ID)
	}
	delete(r.containers, handle.ID)
	return nil
}

// Seed adds an existing container, as if created by an earlier executor.
func (r *Runtime) Seed(id string, spec domain.ContainerSpec) domain.ContainerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := domain.ContainerHandle{ID: id, Name: spec.Name}
	r.containers[id] = stored{handle: h, spec: spec}
	return h
}

// Calls returns a copy of the recorded calls.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls of one operation.
func (r *Runtime) CallsTo(op string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Containers returns the specs of the containers still present, keyed by id.
func (r *Runtime) Containers() map[string]domain.ContainerSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.ContainerSpec, len(r.containers))
	for id, c := range r.containers {
		out[id] = c.spec
	}
	return out
}

// Started reports whether the container with id was started.
func (r *Runtime) Started(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.containers[id].started
}
