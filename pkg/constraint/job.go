package constraint

import (
	"errors"
	"fmt"
	"sync"
)

// Data is the configuration of one constraint kind.
type Data interface {
	// Kind names the constraint type, e.g. "twist-chain".
	Kind() string
	// Validate reports configuration that cannot be built against s.
	Validate(s Stream) error
	// Create builds the job. It is only called after Validate succeeds.
	Create(s Stream) (Job, error)
}

// Job is a built constraint.
type Job interface {
	// Evaluate applies the constraint to s. A weight <= 0 leaves s untouched.
	Evaluate(s Stream, weight float64)
	// Update refreshes tables derived from time-varying configuration.
	Update()
	// Destroy releases the job's tables.
	Destroy()
}

// State is the build state of an Instance.
type State int

const (
	Unbuilt State = iota
	Built
)

func (s State) String() string {
	switch s {
	case Unbuilt:
		return "unbuilt"
	case Built:
		return "built"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Instance is one authored constraint and its job. Build and teardown take
// the write lock; Evaluate takes the read lock, so a rebuild is complete
// before any concurrent evaluation observes it.
type Instance struct {
	mu    sync.RWMutex
	name  string
	data  Data
	job   Job
	state State
}

// NewInstance returns an unbuilt instance.
func NewInstance(name string, data Data) *Instance {
	return &Instance{name: name, data: data}
}

// Name returns the instance name.
func (in *Instance) Name() string {
	return in.name
}

// Kind returns the kind of the instance's data, or "" without data.
func (in *Instance) Kind() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.data == nil {
		return ""
	}
	return in.data.Kind()
}

// State returns the current build state.
func (in *Instance) State() State {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

// Data returns the configuration the instance was last bound with.
func (in *Instance) Data() Data {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.data
}

// Job returns the built job, or nil while unbuilt.
func (in *Instance) Job() Job {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.job
}

// Bind validates the data and builds the job. Binding a built instance is
// a no-op. On failure the instance stays unbuilt.
func (in *Instance) Bind(s Stream) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.state == Built {
		return nil
	}
	return in.build(s)
}

// Rebind discards the current job and builds a new one. A nil data keeps
// the current configuration.
func (in *Instance) Rebind(s Stream, data Data) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.teardown()
	if data != nil {
		in.data = data
	}
	return in.build(s)
}

// Unbind destroys the job and returns the instance to Unbuilt.
func (in *Instance) Unbind() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.teardown()
}

// Update refreshes the job's derived tables.
func (in *Instance) Update() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.state != Built {
		return ErrNotBuilt
	}
	in.job.Update()
	return nil
}

// Evaluate runs the job once against s.
func (in *Instance) Evaluate(s Stream, weight float64) error {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if in.state != Built {
		return ErrNotBuilt
	}
	in.job.Evaluate(s, weight)
	return nil
}

func (in *Instance) build(s Stream) error {
	if in.data == nil {
		return in.named(configErr("data", "is required"))
	}
	if err := in.data.Validate(s); err != nil {
		return in.named(err)
	}
	job, err := in.data.Create(s)
	if err != nil {
		return in.named(err)
	}
	in.job = job
	in.state = Built
	return nil
}

func (in *Instance) teardown() {
	if in.job != nil {
		in.job.Destroy()
	}
	in.job = nil
	in.state = Unbuilt
}

// named attaches the instance name to err.
func (in *Instance) named(err error) error {
	var cfg *ConfigurationError
	if errors.As(err, &cfg) {
		if cfg.Constraint == "" {
			cfg.Constraint = in.name
		}
		return err
	}
	return fmt.Errorf("constraint %q: %w", in.name, err)
}
