// Package rig binds constraints to a joint hierarchy and evaluates them once
// per frame in declaration order.
package rig

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/tendon/pkg/constraint"
	"github.com/chazu/tendon/pkg/curve"
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/samber/lo"
)

// ConstraintDesc declares one constraint of a rig.
type ConstraintDesc struct {
	Name   string
	Weight float64
	Data   constraint.Data
}

// Desc is a complete rig description: the hierarchy, its constraints in
// evaluation order and the overall rig weight.
type Desc struct {
	Hierarchy   *hierarchy.Hierarchy
	Constraints []ConstraintDesc
	Weight      float64
}

// NewDesc returns an empty description over h with full rig weight.
func NewDesc(h *hierarchy.Hierarchy) *Desc {
	return &Desc{Hierarchy: h, Weight: 1}
}

// Add appends a constraint declaration.
func (d *Desc) Add(name string, weight float64, data constraint.Data) {
	d.Constraints = append(d.Constraints, ConstraintDesc{Name: name, Weight: weight, Data: data})
}

// Diagnostic records a constraint that could not be built.
type Diagnostic struct {
	Constraint string
	Kind       string
	Err        error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s (%s): %v", d.Constraint, d.Kind, d.Err)
}

type entry struct {
	inst   *constraint.Instance
	weight float64
}

// Rig is a bound rig. It is not safe for concurrent use.
type Rig struct {
	h       *hierarchy.Hierarchy
	log     *slog.Logger
	entries []*entry
	byName  map[string]*entry
	weight  float64
	frame   uint64
	diags   []Diagnostic
}

// New binds every constraint of desc. Constraints that fail to build stay
// unbound, are reported through Diagnostics and are skipped by Evaluate. An
// error is returned only for a malformed description.
func New(desc *Desc, log *slog.Logger) (*Rig, error) {
	if desc == nil || desc.Hierarchy == nil {
		return nil, errors.New("rig description has no hierarchy")
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Rig{
		h:      desc.Hierarchy,
		log:    log.With("component", "rig"),
		byName: make(map[string]*entry, len(desc.Constraints)),
		weight: curve.Clamp01(desc.Weight),
	}

	for i, cd := range desc.Constraints {
		if cd.Name == "" {
			return nil, fmt.Errorf("constraint %d has no name", i)
		}
		if _, dup := r.byName[cd.Name]; dup {
			return nil, fmt.Errorf("duplicate constraint name %q", cd.Name)
		}
		e := &entry{inst: constraint.NewInstance(cd.Name, cd.Data), weight: curve.Clamp01(cd.Weight)}
		r.entries = append(r.entries, e)
		r.byName[cd.Name] = e
		r.bind(e, nil)
	}

	r.log.Info("rig bound",
		"joints", r.h.NodeCount(),
		"constraints", len(r.entries),
		"failed", len(r.diags))
	return r, nil
}

// bind builds e, or rebuilds it with data when data is non-nil.
func (r *Rig) bind(e *entry, data constraint.Data) error {
	var err error
	if data != nil {
		err = e.inst.Rebind(r.h, data)
	} else {
		err = e.inst.Bind(r.h)
	}
	name := e.inst.Name()
	r.diags = lo.Filter(r.diags, func(d Diagnostic, _ int) bool { return d.Constraint != name })
	if err != nil {
		r.diags = append(r.diags, Diagnostic{Constraint: name, Kind: e.inst.Kind(), Err: err})
		r.log.Warn("constraint disabled", "constraint", name, "kind", e.inst.Kind(), "error", err)
		return err
	}
	r.log.Debug("constraint built", "constraint", name, "kind", e.inst.Kind())
	return nil
}

// Evaluate runs one frame: every built constraint refreshes its tables and
// is applied with the product of the rig and constraint weights.
func (r *Rig) Evaluate() {
	for _, e := range r.entries {
		// Unbuilt instances, including ones unbound by another goroutine
		// mid-frame, report ErrNotBuilt and are skipped.
		err := e.inst.Update()
		if err == nil {
			err = e.inst.Evaluate(r.h, curve.Clamp01(r.weight*e.weight))
		}
		if err != nil {
			r.log.Debug("constraint skipped", "constraint", e.inst.Name(), "frame", r.frame, "error", err)
		}
	}
	r.frame++
}

// SetWeight changes the weight of the named constraint.
func (r *Rig) SetWeight(name string, w float64) error {
	e, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("unknown constraint %q", name)
	}
	e.weight = curve.Clamp01(w)
	return nil
}

// Weight returns the weight of the named constraint.
func (r *Rig) Weight(name string) (float64, bool) {
	e, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return e.weight, true
}

// SetRigWeight scales every constraint.
func (r *Rig) SetRigWeight(w float64) {
	r.weight = curve.Clamp01(w)
}

// RigWeight returns the overall weight.
func (r *Rig) RigWeight() float64 {
	return r.weight
}

// Rebind rebuilds the named constraint with new data, discarding its old
// tables. A nil data rebuilds from the current configuration.
func (r *Rig) Rebind(name string, data constraint.Data) error {
	e, ok := r.byName[name]
	if !ok {
		return fmt.Errorf("unknown constraint %q", name)
	}
	if data == nil {
		data = e.inst.Data()
	}
	return r.bind(e, data)
}

// Instance returns the named constraint instance, or nil.
func (r *Rig) Instance(name string) *constraint.Instance {
	if e, ok := r.byName[name]; ok {
		return e.inst
	}
	return nil
}

// Names returns the constraint names in evaluation order.
func (r *Rig) Names() []string {
	return lo.Map(r.entries, func(e *entry, _ int) string { return e.inst.Name() })
}

// Built returns the names of the constraints that are currently built.
func (r *Rig) Built() []string {
	built := lo.Filter(r.entries, func(e *entry, _ int) bool { return e.inst.State() == constraint.Built })
	return lo.Map(built, func(e *entry, _ int) string { return e.inst.Name() })
}

// Diagnostics returns the build failures of constraints that are unbuilt.
func (r *Rig) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), r.diags...)
}

// Hierarchy returns the posed hierarchy.
func (r *Rig) Hierarchy() *hierarchy.Hierarchy {
	return r.h
}

// Frame returns the number of evaluated frames.
func (r *Rig) Frame() uint64 {
	return r.frame
}

// Destroy unbinds every constraint.
func (r *Rig) Destroy() {
	for _, e := range r.entries {
		e.inst.Unbind()
	}
	r.log.Debug("rig destroyed", "frames", r.frame)
}
