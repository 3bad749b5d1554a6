package hierarchy

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Hierarchy is a forest of joints indexed by ID and by name.
type Hierarchy struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
}

// New creates an empty Hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the hierarchy and links it into its parent's
// children list when the parent is already present. It does not check for
// duplicates; Validate reports them.
func (h *Hierarchy) AddNode(n *Node) {
	h.Nodes[n.ID] = n
	if n.Name != "" {
		h.NameIndex[n.Name] = n.ID
	}
	if n.Parent.IsZero() {
		h.Roots = append(h.Roots, n.ID)
		return
	}
	if p := h.Nodes[n.Parent]; p != nil {
		p.Children = append(p.Children, n.ID)
	}
}

// AddJoint creates a named joint under parent (ZeroID for a root) and
// returns its ID. The parent must already exist and the name must be unused.
func (h *Hierarchy) AddJoint(name string, parent NodeID, local Transform) (NodeID, error) {
	if name == "" {
		return ZeroID, fmt.Errorf("joint name must not be empty")
	}
	if _, exists := h.NameIndex[name]; exists {
		return ZeroID, fmt.Errorf("joint %q already defined", name)
	}
	if !parent.IsZero() {
		if _, ok := h.Nodes[parent]; !ok {
			return ZeroID, fmt.Errorf("joint %q: parent %s does not exist", name, parent.Short())
		}
	}
	id := JointID(name)
	h.AddNode(&Node{
		ID:     id,
		Name:   name,
		Parent: parent,
		Local:  local,
	})
	return id, nil
}

// Lookup returns the node with the given name, or nil.
func (h *Hierarchy) Lookup(name string) *Node {
	id, ok := h.NameIndex[name]
	if !ok {
		return nil
	}
	return h.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (h *Hierarchy) MustLookup(name string) *Node {
	n := h.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("hierarchy: no node named %q", name))
	}
	return n
}

// Resolve returns the ID of the node with the given name.
func (h *Hierarchy) Resolve(name string) (NodeID, bool) {
	id, ok := h.NameIndex[name]
	if !ok {
		return ZeroID, false
	}
	_, exists := h.Nodes[id]
	return id, exists
}

// Get returns the node with the given ID, or nil.
func (h *Hierarchy) Get(id NodeID) *Node {
	return h.Nodes[id]
}

// Children returns the child nodes of n.
func (h *Hierarchy) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := h.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (h *Hierarchy) NodeCount() int {
	return len(h.Nodes)
}

// SortedNodes returns all nodes ordered by name, then ID.
func (h *Hierarchy) SortedNodes() []*Node {
	nodes := make([]*Node, 0, len(h.Nodes))
	for _, n := range h.Nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// ---------------------------------------------------------------------------
// Tree queries
// ---------------------------------------------------------------------------

// Parent returns the parent of id. The second result is false for roots and
// unknown nodes.
func (h *Hierarchy) Parent(id NodeID) (NodeID, bool) {
	n := h.Nodes[id]
	if n == nil || n.Parent.IsZero() {
		return ZeroID, false
	}
	if _, ok := h.Nodes[n.Parent]; !ok {
		return ZeroID, false
	}
	return n.Parent, true
}

// IsDescendantOf reports whether id is ancestor or lies below it. A node
// counts as a descendant of itself.
func (h *Hierarchy) IsDescendantOf(id, ancestor NodeID) bool {
	if _, ok := h.Nodes[id]; !ok {
		return false
	}
	if _, ok := h.Nodes[ancestor]; !ok {
		return false
	}
	cur := id
	// Bounded walk: a malformed hierarchy with a parent cycle must not hang.
	for steps := 0; steps <= len(h.Nodes); steps++ {
		if cur == ancestor {
			return true
		}
		p, ok := h.Parent(cur)
		if !ok {
			return false
		}
		cur = p
	}
	return false
}

// Depth returns the number of ancestors of id, or -1 if id is unknown or
// sits on a parent cycle.
func (h *Hierarchy) Depth(id NodeID) int {
	path := h.pathFromRoot(id)
	if path == nil {
		return -1
	}
	return len(path) - 1
}

// pathFromRoot returns the ancestors of id ordered root first, ending with
// id itself. It returns nil for unknown nodes and parent cycles.
func (h *Hierarchy) pathFromRoot(id NodeID) []*Node {
	var path []*Node
	cur := h.Nodes[id]
	for cur != nil {
		if len(path) > len(h.Nodes) {
			return nil
		}
		path = append(path, cur)
		if cur.Parent.IsZero() {
			break
		}
		cur = h.Nodes[cur.Parent]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ---------------------------------------------------------------------------
// Local pose
// ---------------------------------------------------------------------------

// LocalPosition returns the node's offset from its parent in the parent's frame.
func (h *Hierarchy) LocalPosition(id NodeID) mgl64.Vec3 {
	if n := h.Nodes[id]; n != nil {
		return n.Local.Position
	}
	return mgl64.Vec3{}
}

// LocalRotation returns the node's rotation relative to its parent.
func (h *Hierarchy) LocalRotation(id NodeID) mgl64.Quat {
	if n := h.Nodes[id]; n != nil {
		return n.Local.Rotation
	}
	return mgl64.QuatIdent()
}

// SetLocalPosition overwrites the node's local offset.
func (h *Hierarchy) SetLocalPosition(id NodeID, p mgl64.Vec3) {
	if n := h.Nodes[id]; n != nil {
		n.Local.Position = p
	}
}

// SetLocalRotation overwrites the node's local rotation.
func (h *Hierarchy) SetLocalRotation(id NodeID, q mgl64.Quat) {
	if n := h.Nodes[id]; n != nil {
		n.Local.Rotation = q
	}
}
