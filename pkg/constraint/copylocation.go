package constraint

import (
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// KindCopyLocation is the kind name of CopyLocationData.
const KindCopyLocation = "copy-location"

// CopyLocationData copies the world position of Source onto Constrained,
// negating the selected axes.
type CopyLocationData struct {
	Constrained string
	Source      string
	InvertX     bool
	InvertY     bool
	InvertZ     bool
}

// NegateLocation places constrained at the negated position of source.
func NegateLocation(constrained, source string) CopyLocationData {
	return CopyLocationData{
		Constrained: constrained,
		Source:      source,
		InvertX:     true,
		InvertY:     true,
		InvertZ:     true,
	}
}

func (d CopyLocationData) Kind() string { return KindCopyLocation }

func (d CopyLocationData) Validate(s Stream) error {
	if _, err := resolve(s, "constrained", d.Constrained); err != nil {
		return err
	}
	_, err := resolve(s, "source", d.Source)
	return err
}

func (d CopyLocationData) Create(s Stream) (Job, error) {
	constrained, err := resolve(s, "constrained", d.Constrained)
	if err != nil {
		return nil, err
	}
	source, err := resolve(s, "source", d.Source)
	if err != nil {
		return nil, err
	}
	return &CopyLocationJob{
		constrained: constrained,
		source:      source,
		mask:        invertMask(d.InvertX, d.InvertY, d.InvertZ),
	}, nil
}

// CopyLocationJob is a built copy-location constraint.
type CopyLocationJob struct {
	constrained hierarchy.NodeID
	source      hierarchy.NodeID
	mask        mgl64.Vec3
}

func invertMask(x, y, z bool) mgl64.Vec3 {
	return mgl64.Vec3{
		lo.Ternary(x, -1.0, 1.0),
		lo.Ternary(y, -1.0, 1.0),
		lo.Ternary(z, -1.0, 1.0),
	}
}

// SetInvert replaces the inverted axes. Call it between frames.
func (j *CopyLocationJob) SetInvert(x, y, z bool) {
	j.mask = invertMask(x, y, z)
}

// Mask returns the per-axis sign applied to the source position.
func (j *CopyLocationJob) Mask() mgl64.Vec3 {
	return j.mask
}

// Update is a no-op; the mask only changes through SetInvert.
func (j *CopyLocationJob) Update() {}

// Evaluate moves the constrained joint toward the masked source position.
func (j *CopyLocationJob) Evaluate(s Stream, weight float64) {
	if weight <= 0 {
		return
	}
	if weight > 1 {
		weight = 1
	}
	src := s.WorldPosition(j.source)
	candidate := mgl64.Vec3{src[0] * j.mask[0], src[1] * j.mask[1], src[2] * j.mask[2]}
	s.SetPosition(j.constrained, Lerp(s.WorldPosition(j.constrained), candidate, weight))
}

func (j *CopyLocationJob) Destroy() {}
