package chain

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/go-gl/mathgl/mgl64"
)

// buildSpine creates root -> j1 -> j2 -> j3 with the given local offsets for
// j1..j3, plus a side branch root -> side.
func buildSpine(t *testing.T, offsets ...mgl64.Vec3) *hierarchy.Hierarchy {
	t.Helper()
	h := hierarchy.New()
	parent, err := h.AddJoint("root", hierarchy.ZeroID, hierarchy.Identity())
	if err != nil {
		t.Fatalf("AddJoint(root): %v", err)
	}
	names := []string{"j1", "j2", "j3"}
	for i, off := range offsets {
		parent, err = h.AddJoint(names[i], parent, hierarchy.At(off))
		if err != nil {
			t.Fatalf("AddJoint(%s): %v", names[i], err)
		}
	}
	if _, err := h.AddJoint("side", hierarchy.JointID("root"), hierarchy.At(mgl64.Vec3{1, 0, 0})); err != nil {
		t.Fatalf("AddJoint(side): %v", err)
	}
	return h
}

func unitSpine(t *testing.T) *hierarchy.Hierarchy {
	return buildSpine(t, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 1, 0})
}

func TestExtractOrdersRootToTip(t *testing.T) {
	h := unitSpine(t)
	root := hierarchy.JointID("root")
	tip := hierarchy.JointID("j3")

	c, err := Extract(h, root, tip)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []string{"root", "j1", "j2", "j3"}
	if c.Len() != len(want) {
		t.Fatalf("chain length = %d, want %d", c.Len(), len(want))
	}
	for i, name := range want {
		if c[i] != hierarchy.JointID(name) {
			t.Errorf("chain[%d] = %s, want %s", i, c[i].Short(), name)
		}
	}
	if c.Root() != root || c.Tip() != tip {
		t.Error("Root/Tip mismatch")
	}
	// Length equals the depth difference plus one.
	if c.Len() != h.Depth(tip)-h.Depth(root)+1 {
		t.Errorf("chain length %d does not match depth difference", c.Len())
	}
	if c.Contains(hierarchy.JointID("side")) {
		t.Error("chain must not contain the side branch")
	}
}

func TestExtractSubChain(t *testing.T) {
	h := unitSpine(t)
	c, err := Extract(h, hierarchy.JointID("j1"), hierarchy.JointID("j2"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if c.Len() != 2 || c.Root() != hierarchy.JointID("j1") || c.Tip() != hierarchy.JointID("j2") {
		t.Errorf("unexpected sub-chain %v", c)
	}
}

func TestExtractSingleJoint(t *testing.T) {
	h := unitSpine(t)
	id := hierarchy.JointID("j2")
	c, err := Extract(h, id, id)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if c.Len() != 1 || c[0] != id {
		t.Errorf("root == tip should yield [root], got %v", c)
	}
}

func TestExtractRejectsNonDescendant(t *testing.T) {
	h := unitSpine(t)
	tests := []struct {
		name      string
		root, tip hierarchy.NodeID
	}{
		{"sibling branch", hierarchy.JointID("j1"), hierarchy.JointID("side")},
		{"reversed", hierarchy.JointID("j3"), hierarchy.JointID("root")},
		{"unknown tip", hierarchy.JointID("root"), hierarchy.JointID("ghost")},
		{"zero root", hierarchy.ZeroID, hierarchy.JointID("j3")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := Extract(h, tc.root, tc.tip)
			if !errors.Is(err, ErrInvalidChain) {
				t.Fatalf("err = %v, want ErrInvalidChain", err)
			}
			if c != nil {
				t.Errorf("expected no partial result, got %v", c)
			}
		})
	}
}

func TestSegmentLengthsUseLocalOffsets(t *testing.T) {
	h := buildSpine(t, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{3, 4, 0}, mgl64.Vec3{0, 0, 1})
	// Scaling j1 changes world distances but not the local measure.
	h.MustLookup("j1").Local.Scale = mgl64.Vec3{10, 10, 10}

	c, err := Extract(h, hierarchy.JointID("root"), hierarchy.JointID("j3"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got := SegmentLengths(h, c)
	want := []float64{0, 2, 5, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("lengths[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStepsEqualSegments(t *testing.T) {
	h := unitSpine(t)
	c, err := Extract(h, hierarchy.JointID("root"), hierarchy.JointID("j3"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	steps := Steps(h, c)
	want := []float64{0, 1.0 / 3.0, 2.0 / 3.0, 1}
	for i := range want {
		if math.Abs(steps[i]-want[i]) > 1e-12 {
			t.Errorf("steps[%d] = %v, want %v", i, steps[i], want[i])
		}
	}
	if steps[0] != 0 || steps[len(steps)-1] != 1 {
		t.Errorf("steps must start at exactly 0 and end at exactly 1: %v", steps)
	}
}

func TestStepsMonotone(t *testing.T) {
	lengths := []float64{0, 0.3, 0, 1.7, 0.01, 2.2, 0}
	steps := StepsFromLengths(lengths)
	if steps[0] != 0 || steps[len(steps)-1] != 1 {
		t.Fatalf("steps endpoints = %v, %v", steps[0], steps[len(steps)-1])
	}
	for i := 1; i < len(steps); i++ {
		if steps[i] < steps[i-1] {
			t.Errorf("steps not monotone at %d: %v < %v", i, steps[i], steps[i-1])
		}
	}
}

func TestStepsZeroLengthFallsBackToUniform(t *testing.T) {
	zero := mgl64.Vec3{}
	h := buildSpine(t, zero, zero, zero)
	c, err := Extract(h, hierarchy.JointID("root"), hierarchy.JointID("j3"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	steps := Steps(h, c)
	want := []float64{0, 1.0 / 3.0, 2.0 / 3.0, 1}
	for i := range want {
		if math.IsNaN(steps[i]) || math.IsInf(steps[i], 0) {
			t.Fatalf("steps[%d] is not finite: %v", i, steps[i])
		}
		if math.Abs(steps[i]-want[i]) > 1e-12 {
			t.Errorf("steps[%d] = %v, want %v", i, steps[i], want[i])
		}
	}
}

func TestStepsFromLengthsEdgeCases(t *testing.T) {
	if got := StepsFromLengths(nil); len(got) != 0 {
		t.Errorf("empty lengths should give empty steps, got %v", got)
	}
	if got := StepsFromLengths([]float64{0}); len(got) != 1 || got[0] != 0 {
		t.Errorf("single joint should give [0], got %v", got)
	}
	got := StepsFromLengths([]float64{0, math.NaN(), 1})
	for i, s := range got {
		if math.IsNaN(s) {
			t.Errorf("steps[%d] is NaN", i)
		}
	}
}
