package constraint

import (
	"math"
	"testing"

	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/go-gl/mathgl/mgl64"
)

const eps = 1e-9

// buildRig creates
//
//	base -> arm -> j1 -> j2 -> hand      (unit +Y offsets below base)
//	rt, tt                                (root-level target joints)
//	src, dst                              (root-level joints for copy tests)
func buildRig(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h := hierarchy.New()
	add := func(name, parent string, local hierarchy.Transform) {
		t.Helper()
		pid := hierarchy.ZeroID
		if parent != "" {
			pid = hierarchy.JointID(parent)
		}
		if _, err := h.AddJoint(name, pid, local); err != nil {
			t.Fatalf("AddJoint(%s): %v", name, err)
		}
	}
	up := mgl64.Vec3{0, 1, 0}
	add("base", "", hierarchy.Identity())
	add("arm", "base", hierarchy.At(up))
	add("j1", "arm", hierarchy.At(up))
	add("j2", "j1", hierarchy.At(up))
	add("hand", "j2", hierarchy.At(up))

	rt := hierarchy.At(mgl64.Vec3{5, 0, 0})
	rt.Rotation = mgl64.QuatRotate(math.Pi/6, mgl64.Vec3{0, 1, 0})
	add("rt", "", rt)
	tt := hierarchy.At(mgl64.Vec3{-5, 0, 0})
	tt.Rotation = mgl64.QuatRotate(2*math.Pi/3, mgl64.Vec3{0, 1, 0})
	add("tt", "", tt)

	add("src", "", hierarchy.At(mgl64.Vec3{2, 3, 4}))
	add("dst", "", hierarchy.At(mgl64.Vec3{7, -1, 0.5}))
	return h
}

func twistData() TwistChainData {
	return NewTwistChainData("arm", "hand", "rt", "tt")
}

func mustBuild(t *testing.T, h *hierarchy.Hierarchy, name string, data Data) *Instance {
	t.Helper()
	in := NewInstance(name, data)
	if err := in.Bind(h); err != nil {
		t.Fatalf("Bind(%s): %v", name, err)
	}
	return in
}

func twistJob(t *testing.T, in *Instance) *TwistChainJob {
	t.Helper()
	job, ok := in.Job().(*TwistChainJob)
	if !ok {
		t.Fatalf("job is %T, want *TwistChainJob", in.Job())
	}
	return job
}

// snapshot captures every local transform bit for bit.
func snapshot(h *hierarchy.Hierarchy) map[hierarchy.NodeID]hierarchy.Transform {
	out := make(map[hierarchy.NodeID]hierarchy.Transform, h.NodeCount())
	for id, n := range h.Nodes {
		out[id] = n.Local
	}
	return out
}

func sameFloats(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
