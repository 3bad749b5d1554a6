// Package chain extracts ordered joint chains from a hierarchy and computes
// their arc-length parameterization.
package chain

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// ErrInvalidChain is returned when tip is not root or a descendant of root.
var ErrInvalidChain = errors.New("invalid chain")

// Tree is the part of a hierarchy the extractor reads.
type Tree interface {
	Parent(id hierarchy.NodeID) (hierarchy.NodeID, bool)
	IsDescendantOf(id, ancestor hierarchy.NodeID) bool
	LocalPosition(id hierarchy.NodeID) mgl64.Vec3
}

// Chain is the path from a root joint (index 0) to a tip joint (last index).
type Chain []hierarchy.NodeID

// Root returns the first joint, or ZeroID for an empty chain.
func (c Chain) Root() hierarchy.NodeID {
	if len(c) == 0 {
		return hierarchy.ZeroID
	}
	return c[0]
}

// Tip returns the last joint, or ZeroID for an empty chain.
func (c Chain) Tip() hierarchy.NodeID {
	if len(c) == 0 {
		return hierarchy.ZeroID
	}
	return c[len(c)-1]
}

// Len returns the number of joints.
func (c Chain) Len() int {
	return len(c)
}

// Contains reports whether id is a joint of the chain.
func (c Chain) Contains(id hierarchy.NodeID) bool {
	return lo.Contains(c, id)
}

// Extract returns the joints from root to tip inclusive. It fails with
// ErrInvalidChain unless tip is root or lies below it. A root equal to tip
// yields a single-joint chain; callers needing two joints must check.
func Extract(t Tree, root, tip hierarchy.NodeID) (Chain, error) {
	if root.IsZero() || tip.IsZero() {
		return nil, fmt.Errorf("%w: root and tip are required", ErrInvalidChain)
	}
	if !t.IsDescendantOf(tip, root) {
		return nil, fmt.Errorf("%w: %s is not a descendant of %s", ErrInvalidChain, tip.Short(), root.Short())
	}

	var c Chain
	cur := tip
	for cur != root {
		c = append(c, cur)
		p, ok := t.Parent(cur)
		if !ok {
			return nil, fmt.Errorf("%w: walk from %s ended at %s before reaching %s",
				ErrInvalidChain, tip.Short(), cur.Short(), root.Short())
		}
		cur = p
	}
	c = append(c, root)
	return lo.Reverse(c), nil
}

// SegmentLengths returns the local offset magnitude of every joint, with
// the root's length defined as 0. Offsets are measured in the parent's local
// frame, so intermediate scale is not accounted for.
func SegmentLengths(t Tree, c Chain) []float64 {
	lengths := make([]float64, len(c))
	for i := 1; i < len(c); i++ {
		lengths[i] = t.LocalPosition(c[i]).Len()
	}
	return lengths
}

// Steps returns the normalized cumulative length of every joint along the
// chain, from 0 at the root to 1 at the tip.
func Steps(t Tree, c Chain) []float64 {
	return StepsFromLengths(SegmentLengths(t, c))
}

// StepsFromLengths normalizes cumulative segment lengths into [0, 1]. When the
// total length is zero the joints are spaced uniformly instead.
func StepsFromLengths(lengths []float64) []float64 {
	n := len(lengths)
	steps := make([]float64, n)
	if n == 0 {
		return steps
	}

	floats.CumSum(steps, lengths)
	total := steps[n-1]
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return uniformSteps(steps)
	}
	for i := range steps {
		steps[i] /= total
	}
	return steps
}

// uniformSteps overwrites steps with i/(n-1); a single joint gets 0.
func uniformSteps(steps []float64) []float64 {
	n := len(steps)
	if n == 1 {
		steps[0] = 0
		return steps
	}
	for i := range steps {
		steps[i] = float64(i) / float64(n-1)
	}
	return steps
}
