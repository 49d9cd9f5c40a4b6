package planning

import "github.com/SRai22/selfdriving/kinematics"

// NodeID indexes a node in a Tree. Dense and append-only: NodeIDs are never reused or invalidated.
type NodeID int

// Edge is a single PTG trajectory segment connecting a parent node to a child node (SPEC_FULL.md
// §3, "Tree edge"). StateFrom/StateTo duplicate the endpoint states for reconstruction without
// re-walking the tree.
type Edge struct {
	Parent NodeID

	PTGIndex   int
	AlphaIndex int
	Dist       float64 // un-normalized arc-length "pseudo-meters", not the TP-space-normalized d

	TargetRelSpeed float64

	StateFrom, StateTo kinematics.State
	Cost               float64

	// InterpolatedPoses holds evenly-spaced sub-poses along the edge, populated only when the
	// planner config requests visualization segments.
	InterpolatedPoses []kinematics.Pose
}

// Node is a single tree vertex: a kinematic state reached with some accumulated cost, and an
// optional parent (absent only for the root).
type Node struct {
	State      kinematics.State
	CostToCome float64
	Parent     NodeID
	HasParent  bool
}

// Tree is the append-only (except for rewire's parent/cost reassignment) motion-primitive tree the
// planner builds. Nodes are stored densely by NodeID; edges are keyed by the child's NodeID since a
// node has at most one parent.
type Tree struct {
	nodes    []Node
	edges    []Edge // edges[i] is the edge into node i; edges[0] (the root) is never read
	children [][]NodeID
}

// NewTree builds an empty tree.
func NewTree() *Tree {
	return &Tree{}
}

// InsertRoot adds the root node (no parent, no edge) and returns its NodeID (always 0).
func (t *Tree) InsertRoot(state kinematics.State) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{State: state})
	t.edges = append(t.edges, Edge{})
	t.children = append(t.children, nil)
	return id
}

// InsertChild appends a new node with the given parent and connecting edge, returning the new
// NodeID.
func (t *Tree) InsertChild(parent NodeID, state kinematics.State, cost float64, edge Edge) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{State: state, CostToCome: cost, Parent: parent, HasParent: true})
	t.edges = append(t.edges, edge)
	t.children = append(t.children, nil)
	t.children[parent] = append(t.children[parent], id)
	return id
}

// Node returns the node at id.
func (t *Tree) Node(id NodeID) Node { return t.nodes[id] }

// Edge returns the incoming edge at id (meaningless for the root).
func (t *Tree) Edge(id NodeID) Edge { return t.edges[id] }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Children returns the NodeIDs of every direct child of id.
func (t *Tree) Children(id NodeID) []NodeID { return t.children[id] }

// SetParent reassigns id's parent, edge, and cost-to-come during a rewire, removing it from its
// old parent's child list and adding it to the new one.
func (t *Tree) SetParent(id, newParent NodeID, edge Edge, newCost float64) {
	oldParent := t.nodes[id].Parent
	if t.nodes[id].HasParent {
		siblings := t.children[oldParent]
		for i, c := range siblings {
			if c == id {
				t.children[oldParent] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	t.nodes[id].Parent = newParent
	t.nodes[id].HasParent = true
	t.nodes[id].CostToCome = newCost
	t.edges[id] = edge
	t.children[newParent] = append(t.children[newParent], id)
}

// SetCost updates only the cost-to-come of id, used when propagating a rewire's cost delta to
// descendants (their edge and parent are unchanged).
func (t *Tree) SetCost(id NodeID, cost float64) { t.nodes[id].CostToCome = cost }

// ReconstructPath walks from id back to the root, returning the NodeIDs in root-to-id order.
func (t *Tree) ReconstructPath(id NodeID) []NodeID {
	var rev []NodeID
	for {
		rev = append(rev, id)
		n := t.nodes[id]
		if !n.HasParent {
			break
		}
		id = n.Parent
	}
	path := make([]NodeID, len(rev))
	for i, id := range rev {
		path[len(rev)-1-i] = id
	}
	return path
}
