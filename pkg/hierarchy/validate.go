package hierarchy

import (
	"fmt"
	"math"
)

// ValidationSeverity indicates whether a validation finding blocks rig
// construction or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks rig construction
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if hierarchy-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

// Validate runs all structural checks on the hierarchy and returns the
// findings. An empty slice means the hierarchy is valid. Validate never
// mutates the hierarchy.
func Validate(h *Hierarchy) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateCycles(h)...)
	errs = append(errs, validateParents(h)...)
	errs = append(errs, validateNames(h)...)
	errs = append(errs, validateRoots(h)...)
	errs = append(errs, validateTransforms(h)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateCycles walks parent links with 3-color marking. A transform
// hierarchy is a forest, so a gray node reached again closes a cycle.
func validateCycles(h *Hierarchy) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	for id := range h.Nodes {
		if color[id] != white {
			continue
		}
		var walked []NodeID
		cur := id
		for {
			if color[cur] == gray {
				errs = append(errs, ValidationError{
					NodeID:   cur,
					Message:  fmt.Sprintf("cycle detected: node %s is its own ancestor", cur.Short()),
					Severity: SeverityError,
				})
				break
			}
			if color[cur] == black {
				break
			}
			color[cur] = gray
			walked = append(walked, cur)

			n := h.Nodes[cur]
			if n == nil || n.Parent.IsZero() {
				break
			}
			if _, ok := h.Nodes[n.Parent]; !ok {
				// Dangling parent; handled by validateParents.
				break
			}
			cur = n.Parent
		}
		for _, w := range walked {
			color[w] = black
		}
		if len(errs) > 0 {
			// One cycle error is sufficient; stop early.
			break
		}
	}

	return errs
}

// validateParents checks that every parent reference exists and that the
// parent and children links agree with each other.
func validateParents(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	for _, node := range h.Nodes {
		if !node.Parent.IsZero() {
			parent, ok := h.Nodes[node.Parent]
			if !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("parent reference %s does not exist", node.Parent.Short()),
					Severity: SeverityError,
				})
			} else if !containsID(parent.Children, node.ID) {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("parent %s does not list this node as a child", node.Parent.Short()),
					Severity: SeverityError,
				})
			}
		}

		for _, childID := range node.Children {
			child, ok := h.Nodes[childID]
			if !ok {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child reference %s does not exist", childID.Short()),
					Severity: SeverityError,
				})
				continue
			}
			if child.Parent != node.ID {
				errs = append(errs, ValidationError{
					NodeID:   node.ID,
					Message:  fmt.Sprintf("child %s has a different parent", childID.Short()),
					Severity: SeverityError,
				})
			}
		}
	}

	return errs
}

// validateNames checks that the NameIndex is injective and that every entry
// points to an existing node with that name.
func validateNames(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	for name, id := range h.NameIndex {
		n, ok := h.Nodes[id]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("name index entry %q references non-existent node %s", name, id.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if n.Name != name {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("name index entry %q points at node named %q", name, n.Name),
				Severity: SeverityError,
			})
		}
	}

	nameToNodes := make(map[string][]NodeID)
	for id, node := range h.Nodes {
		if node.Name != "" {
			nameToNodes[node.Name] = append(nameToNodes[node.Name], id)
		}
	}
	for name, ids := range nameToNodes {
		if len(ids) > 1 {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("duplicate name %q assigned to %d nodes", name, len(ids)),
				Severity: SeverityError,
			})
		}
	}

	return errs
}

// validateRoots checks that every root entry exists and has no parent, and
// that every parentless node is registered as a root.
func validateRoots(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	registered := make(map[NodeID]bool, len(h.Roots))
	for _, rid := range h.Roots {
		registered[rid] = true
		n, ok := h.Nodes[rid]
		if !ok {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("root reference %s does not exist", rid.Short()),
				Severity: SeverityError,
			})
			continue
		}
		if !n.Parent.IsZero() {
			errs = append(errs, ValidationError{
				NodeID:   rid,
				Message:  "registered as root but has a parent",
				Severity: SeverityError,
			})
		}
	}

	for id, n := range h.Nodes {
		if n.Parent.IsZero() && !registered[id] {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("node %q has no parent but is not a registered root", n.Name),
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

// validateTransforms rejects non-finite local transforms and warns about
// degenerate rotations and zero scale.
func validateTransforms(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	for id, n := range h.Nodes {
		t := n.Local
		values := []float64{
			t.Position[0], t.Position[1], t.Position[2],
			t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2],
			t.Scale[0], t.Scale[1], t.Scale[2],
		}
		finite := true
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				finite = false
				break
			}
		}
		if !finite {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "local transform contains NaN or Inf",
				Severity: SeverityError,
			})
			continue
		}

		if l := t.Rotation.Len(); math.Abs(l-1) > 1e-3 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("local rotation has length %.4f, expected unit quaternion", l),
				Severity: SeverityWarning,
			})
		}
		if t.Scale[0] == 0 || t.Scale[1] == 0 || t.Scale[2] == 0 {
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  fmt.Sprintf("local scale %v has a zero axis", t.Scale),
				Severity: SeverityWarning,
			})
		}
	}

	return errs
}

func containsID(ids []NodeID, id NodeID) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}
