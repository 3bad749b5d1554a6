package hierarchy

import "github.com/go-gl/mathgl/mgl64"

// Transform is a local translation, rotation and scale relative to the parent.
type Transform struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// At returns an identity transform translated to p.
func At(p mgl64.Vec3) Transform {
	t := Identity()
	t.Position = p
	return t
}

// Node is a single joint of the hierarchy.
type Node struct {
	ID       NodeID    `json:"id"`
	Name     string    `json:"name"`
	Parent   NodeID    `json:"parent,omitempty"`
	Children []NodeID  `json:"children,omitempty"`
	Local    Transform `json:"local"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent.IsZero()
}
