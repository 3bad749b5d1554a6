// Package constraint implements per-frame rig constraints.
//
// A constraint is described by a Data value (its persisted configuration).
// Binding an Instance validates the data against a Stream and builds a Job,
// which owns whatever tables the constraint precomputes. The job is then
// evaluated once per frame with a runtime weight in [0, 1]. Changing the
// structural configuration requires a Rebind, which discards the old job.
package constraint
