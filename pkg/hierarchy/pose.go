package hierarchy

import "github.com/go-gl/mathgl/mgl64"

// WorldPose is a node's composed transform in world space. Scale is the
// lossy product of local scales along the path; shear from non-uniform
// scale under rotation is not represented.
type WorldPose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityPose is the world pose of the (virtual) parent of a root.
func IdentityPose() WorldPose {
	return WorldPose{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Compose applies a local transform below p.
func (p WorldPose) Compose(local Transform) WorldPose {
	return WorldPose{
		Position: p.Position.Add(p.Rotation.Rotate(mulElem(p.Scale, local.Position))),
		Rotation: p.Rotation.Mul(local.Rotation),
		Scale:    mulElem(p.Scale, local.Scale),
	}
}

// World returns the world pose of id. Unknown nodes yield the identity pose.
func (h *Hierarchy) World(id NodeID) WorldPose {
	pose := IdentityPose()
	for _, n := range h.pathFromRoot(id) {
		pose = pose.Compose(n.Local)
	}
	return pose
}

// parentWorld returns the world pose of id's parent, or identity for roots.
func (h *Hierarchy) parentWorld(id NodeID) WorldPose {
	p, ok := h.Parent(id)
	if !ok {
		return IdentityPose()
	}
	return h.World(p)
}

// WorldPosition returns the node's position in world space.
func (h *Hierarchy) WorldPosition(id NodeID) mgl64.Vec3 {
	return h.World(id).Position
}

// Rotation returns the node's rotation in world space.
func (h *Hierarchy) Rotation(id NodeID) mgl64.Quat {
	return h.World(id).Rotation
}

// SetRotation sets the node's world-space rotation by rewriting its local
// rotation against the parent's current world rotation.
func (h *Hierarchy) SetRotation(id NodeID, q mgl64.Quat) {
	n := h.Nodes[id]
	if n == nil {
		return
	}
	parent := h.parentWorld(id)
	n.Local.Rotation = parent.Rotation.Inverse().Mul(q).Normalize()
}

// SetPosition sets the node's world-space position by rewriting its local
// offset. Axes along which the parent has zero scale keep a zero offset.
func (h *Hierarchy) SetPosition(id NodeID, p mgl64.Vec3) {
	n := h.Nodes[id]
	if n == nil {
		return
	}
	parent := h.parentWorld(id)
	local := parent.Rotation.Inverse().Rotate(p.Sub(parent.Position))
	n.Local.Position = divElem(local, parent.Scale)
}

func mulElem(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divElem(a, b mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range out {
		if b[i] != 0 {
			out[i] = a[i] / b[i]
		}
	}
	return out
}
