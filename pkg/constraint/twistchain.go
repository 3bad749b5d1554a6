package constraint

import (
	"fmt"

	"github.com/chazu/tendon/pkg/chain"
	"github.com/chazu/tendon/pkg/curve"
	"github.com/chazu/tendon/pkg/hierarchy"
)

// KindTwistChain is the kind name of TwistChainData.
const KindTwistChain = "twist-chain"

// Features switches off parts of the default twist chain behavior. The zero
// value shapes weights through the curve and tracks the targets.
type Features uint8

const (
	// FeatureNoCurveShaping uses the arc-length steps as weights and ignores
	// the curve.
	FeatureNoCurveShaping Features = 1 << iota
	// FeatureNoTrackTargets leaves the target joints where they are instead
	// of moving them onto the chain ends after each evaluation.
	FeatureNoTrackTargets

	DefaultFeatures Features = 0
)

// Has reports whether all of x are set.
func (f Features) Has(x Features) bool {
	return f&x == x
}

// Shaping reports whether weights are mapped through the curve.
func (f Features) Shaping() bool {
	return !f.Has(FeatureNoCurveShaping)
}

// TracksTargets reports whether targets follow the chain ends.
func (f Features) TracksTargets() bool {
	return !f.Has(FeatureNoTrackTargets)
}

// TwistChainData distributes rotation along the chain from Root to Tip,
// interpolating between the orientations of RootTarget and TipTarget.
type TwistChainData struct {
	Root       string
	Tip        string
	RootTarget string
	TipTarget  string
	Curve      curve.Curve
	Features   Features
}

// NewTwistChainData returns data with a linear curve and default features.
func NewTwistChainData(root, tip, rootTarget, tipTarget string) TwistChainData {
	return TwistChainData{
		Root:       root,
		Tip:        tip,
		RootTarget: rootTarget,
		TipTarget:  tipTarget,
		Curve:      curve.NewLinear(),
		Features:   DefaultFeatures,
	}
}

func (d TwistChainData) Kind() string { return KindTwistChain }

type twistChainRefs struct {
	root, tip, rootTarget, tipTarget hierarchy.NodeID
}

func (d TwistChainData) resolve(s Stream) (twistChainRefs, error) {
	var refs twistChainRefs
	var err error
	if refs.root, err = resolve(s, "root", d.Root); err != nil {
		return refs, err
	}
	if refs.tip, err = resolve(s, "tip", d.Tip); err != nil {
		return refs, err
	}
	if refs.rootTarget, err = resolve(s, "root-target", d.RootTarget); err != nil {
		return refs, err
	}
	if refs.tipTarget, err = resolve(s, "tip-target", d.TipTarget); err != nil {
		return refs, err
	}
	return refs, nil
}

// Validate checks that every joint resolves, that Tip is Root or below it
// and that a curve is set when shaping is enabled.
func (d TwistChainData) Validate(s Stream) error {
	refs, err := d.resolve(s)
	if err != nil {
		return err
	}
	if !s.IsDescendantOf(refs.tip, refs.root) {
		return &ConfigurationError{
			Field:  "tip",
			Reason: fmt.Sprintf("%q is not a descendant of %q", d.Tip, d.Root),
			Err:    chain.ErrInvalidChain,
		}
	}
	if d.Features.Shaping() && d.Curve == nil {
		return configErr("curve", "is required when curve shaping is enabled")
	}
	return nil
}

// Create extracts the chain and precomputes its step and weight tables.
func (d TwistChainData) Create(s Stream) (Job, error) {
	refs, err := d.resolve(s)
	if err != nil {
		return nil, err
	}
	c, err := chain.Extract(s, refs.root, refs.tip)
	if err != nil {
		return nil, &ConfigurationError{Field: "tip", Reason: "cannot extract chain", Err: err}
	}
	job := &TwistChainJob{
		rootTarget: refs.rootTarget,
		tipTarget:  refs.tipTarget,
		chain:      c,
		steps:      chain.Steps(s, c),
		weights:    make([]float64, len(c)),
		curve:      d.Curve,
		features:   d.Features,
	}
	job.Update()
	return job, nil
}

// TwistChainJob is a built twist chain. The step table is fixed at build
// time; the weight table follows the curve on every Update.
type TwistChainJob struct {
	rootTarget hierarchy.NodeID
	tipTarget  hierarchy.NodeID
	chain      chain.Chain
	steps      []float64
	weights    []float64
	curve      curve.Curve
	features   Features
}

// Update recomputes weights[i] = Clamp01(curve(steps[i])).
func (j *TwistChainJob) Update() {
	shape := j.features.Shaping() && j.curve != nil
	for i, step := range j.steps {
		if shape {
			j.weights[i] = curve.Clamp01(j.curve.Evaluate(step))
		} else {
			j.weights[i] = curve.Clamp01(step)
		}
	}
}

// Evaluate blends every chain joint toward the orientation between the two
// targets given by its weight. Target rotations are read before any joint
// is written; target positions are written after all joints.
func (j *TwistChainJob) Evaluate(s Stream, weight float64) {
	if weight <= 0 || len(j.chain) == 0 {
		return
	}
	if weight > 1 {
		weight = 1
	}

	rootRot := s.Rotation(j.rootTarget)
	tipRot := s.Rotation(j.tipTarget)

	for i, id := range j.chain {
		target := Slerp(rootRot, tipRot, j.weights[i])
		s.SetRotation(id, Slerp(s.Rotation(id), target, weight))
	}

	if j.features.TracksTargets() {
		s.SetPosition(j.rootTarget, s.WorldPosition(j.chain.Root()))
		s.SetPosition(j.tipTarget, s.WorldPosition(j.chain.Tip()))
	}
}

// Destroy releases the chain and tables.
func (j *TwistChainJob) Destroy() {
	j.chain = nil
	j.steps = nil
	j.weights = nil
}

// Chain returns a copy of the extracted chain.
func (j *TwistChainJob) Chain() chain.Chain {
	return append(chain.Chain(nil), j.chain...)
}

// Steps returns a copy of the arc-length table.
func (j *TwistChainJob) Steps() []float64 {
	return append([]float64(nil), j.steps...)
}

// Weights returns a copy of the weight table.
func (j *TwistChainJob) Weights() []float64 {
	return append([]float64(nil), j.weights...)
}
