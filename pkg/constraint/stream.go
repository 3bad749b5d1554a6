package constraint

import (
	"fmt"

	"github.com/chazu/tendon/pkg/chain"
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/go-gl/mathgl/mgl64"
)

// Stream is the pose a job reads and writes. Positions and rotations are in
// world space. *hierarchy.Hierarchy implements it.
type Stream interface {
	chain.Tree

	Resolve(name string) (hierarchy.NodeID, bool)
	WorldPosition(id hierarchy.NodeID) mgl64.Vec3
	Rotation(id hierarchy.NodeID) mgl64.Quat
	SetRotation(id hierarchy.NodeID, q mgl64.Quat)
	SetPosition(id hierarchy.NodeID, p mgl64.Vec3)
}

var _ Stream = (*hierarchy.Hierarchy)(nil)

// resolve looks up a required joint name for field.
func resolve(s Stream, field, name string) (hierarchy.NodeID, error) {
	if name == "" {
		return hierarchy.ZeroID, configErr(field, "is required")
	}
	id, ok := s.Resolve(name)
	if !ok {
		return hierarchy.ZeroID, configErr(field, fmt.Sprintf("unknown joint %q", name))
	}
	return id, nil
}
