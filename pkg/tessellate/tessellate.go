// Package tessellate walks a joint hierarchy and produces gizmo meshes
// using a geometry kernel. One mesh is produced per joint: a marker at the
// joint unioned with a bone to each child.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/chazu/tendon/pkg/kernel"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Mesh roles.
const (
	RoleJoint   = "joint"
	RoleControl = "control"
)

// boneEpsilon is the shortest bone that still gets geometry.
const boneEpsilon = 1e-9

// Options controls gizmo sizes.
type Options struct {
	JointRadius float64  // sphere drawn at every joint
	BoneRadius  float64  // cylinder drawn from a joint to each child
	ControlSize float64  // edge length of the control cage
	Controls    []string // joints drawn as control cages instead of spheres
}

// DefaultOptions returns gizmo sizes suited to a rig measured in meters.
func DefaultOptions() Options {
	return Options{
		JointRadius: 0.08,
		BoneRadius:  0.03,
		ControlSize: 0.3,
	}
}

func (o Options) validate(h *hierarchy.Hierarchy) error {
	if !(o.JointRadius > 0) || !(o.BoneRadius > 0) {
		return fmt.Errorf("joint and bone radius must be positive, got %v and %v", o.JointRadius, o.BoneRadius)
	}
	if len(o.Controls) > 0 && !(o.ControlSize > 0) {
		return fmt.Errorf("control size must be positive, got %v", o.ControlSize)
	}
	for _, name := range o.Controls {
		if _, ok := h.Resolve(name); !ok {
			return fmt.Errorf("unknown control joint %q", name)
		}
	}
	return nil
}

// Bones walks the hierarchy from its roots and produces one gizmo mesh per
// joint, ordered depth-first. The walk is read-only.
func Bones(h *hierarchy.Hierarchy, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if h == nil {
		return nil, nil
	}
	if err := opts.validate(h); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}

	w := &walker{h: h, k: k, opts: opts, visited: make(map[hierarchy.NodeID]bool)}
	for _, rootID := range h.Roots {
		root := h.Get(rootID)
		if root == nil {
			continue
		}
		pose := hierarchy.IdentityPose().Compose(root.Local)
		if err := w.walk(root, pose); err != nil {
			return nil, fmt.Errorf("tessellate: error walking root %s: %w", root.Name, err)
		}
	}
	return w.meshes, nil
}

type walker struct {
	h       *hierarchy.Hierarchy
	k       kernel.Kernel
	opts    Options
	visited map[hierarchy.NodeID]bool
	meshes  []*kernel.Mesh
}

// walk emits the gizmo for n at its world pose, then recurses into children.
func (w *walker) walk(n *hierarchy.Node, pose hierarchy.WorldPose) error {
	if w.visited[n.ID] {
		return fmt.Errorf("joint %s reached twice", n.ID.Short())
	}
	w.visited[n.ID] = true

	role := RoleJoint
	solid := w.k.Sphere(w.opts.JointRadius)
	if lo.Contains(w.opts.Controls, n.Name) {
		role = RoleControl
		solid = w.orient(w.controlCage(), pose.Rotation)
	}
	solid = w.k.Translate(solid, pose.Position.X(), pose.Position.Y(), pose.Position.Z())

	children := w.h.Children(n)
	poses := make([]hierarchy.WorldPose, len(children))
	for i, c := range children {
		poses[i] = pose.Compose(c.Local)
		if bone := w.bone(pose.Position, poses[i].Position); bone != nil {
			solid = w.k.Union(solid, bone)
		}
	}

	mesh, err := w.k.ToMesh(solid)
	if err != nil {
		return fmt.Errorf("ToMesh failed for joint %s: %w", n.Name, err)
	}
	mesh.Joint = n.Name
	if mesh.Joint == "" {
		mesh.Joint = n.ID.Short()
	}
	mesh.Role = role
	w.meshes = append(w.meshes, mesh)

	for i, c := range children {
		if err := w.walk(c, poses[i]); err != nil {
			return err
		}
	}
	return nil
}

// bone returns a cylinder from a to b, or nil when they coincide.
func (w *walker) bone(a, b mgl64.Vec3) kernel.Solid {
	d := b.Sub(a)
	length := d.Len()
	if length <= boneEpsilon {
		return nil
	}
	// Cylinders run along Z centered on the origin; lift the base to 0.
	s := w.k.Cylinder(length, w.opts.BoneRadius, 16)
	s = w.k.Translate(s, 0, 0, length/2)
	s = w.orient(s, mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, d))
	return w.k.Translate(s, a.X(), a.Y(), a.Z())
}

// controlCage is a rounded box hollowed by a sphere that breaks through
// every face.
func (w *walker) controlCage() kernel.Solid {
	c := w.opts.ControlSize
	shell := w.k.Intersection(w.k.Box(c, c, c), w.k.Sphere(0.7*c))
	return w.k.Difference(shell, w.k.Sphere(0.6*c))
}

func (w *walker) orient(s kernel.Solid, q mgl64.Quat) kernel.Solid {
	axis, degrees := axisAngle(q)
	if degrees == 0 {
		return s
	}
	return w.k.Rotate(s, axis, degrees)
}

// axisAngle converts q to a unit axis and an angle in degrees in [0, 180].
func axisAngle(q mgl64.Quat) ([3]float64, float64) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	cw := math.Min(q.W, 1)
	s := math.Sqrt(1 - cw*cw)
	if s < 1e-12 {
		return [3]float64{}, 0
	}
	axis := q.V.Mul(1 / s)
	return [3]float64{axis.X(), axis.Y(), axis.Z()}, mgl64.RadToDeg(2 * math.Acos(cw))
}
