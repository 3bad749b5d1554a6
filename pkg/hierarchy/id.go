package hierarchy

import "github.com/google/uuid"

// NodeID is a content-addressed identifier for hierarchy nodes. It is derived
// from the node path so that evaluating the same rig source twice yields the
// same IDs.
type NodeID string

// ZeroID is the empty NodeID. A node whose Parent is ZeroID is a root.
const ZeroID NodeID = ""

// idNamespace scopes the SHA1 name-based UUIDs generated for node paths.
var idNamespace = uuid.MustParse("5f0c4d1e-8a52-4b6e-9d0e-2f6b7a3c91d4")

// NewNodeID derives a deterministic NodeID from a node path such as
// "joint/upper-arm".
func NewNodeID(path string) NodeID {
	return NodeID(uuid.NewSHA1(idNamespace, []byte(path)).String())
}

// JointID returns the NodeID used for a joint with the given name.
func JointID(name string) NodeID {
	return NewNodeID("joint/" + name)
}

// IsZero reports whether the ID is empty.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns an abbreviated form of the ID for messages.
func (id NodeID) Short() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}
