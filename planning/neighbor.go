package planning

import (
	"sort"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/tpspace"
)

// Candidate is a single TP-space neighbor-search result: node n can reach query pose q via PTG
// ptgIndex's direction alphaIndex at distance dist (normalized, comparable across PTGs — see
// tpspace.PTG.InverseMap's doc comment).
type Candidate struct {
	Node       NodeID
	PTGIndex   int
	AlphaIndex int
	Dist       float64
}

// cannotBeNearerThan is the cheap lower-bound prune (SPEC_FULL.md §4.7 step 1): a conservative
// workspace-distance check using the Euclidean distance between node and query poses. A PTG can
// never realize an offset shorter than the straight-line distance minus nothing (Euclidean
// distance is already a lower bound on any curved-path length), so any node farther than the
// search radius cannot possibly produce an in-radius candidate and is skipped before the more
// expensive InverseMap call. radius is TP-space-normalized (comparable to InverseMap's d), so it
// must be scaled by refDistance before comparing against the raw workspace distance; refDistance
// should be the max across every PTG under consideration so the prune stays conservative for all
// of them.
func cannotBeNearerThan(nodeState kinematics.Pose, q kinematics.Pose, radius, refDistance float64) bool {
	return nodeState.DistanceTo(q) > radius*refDistance
}

// NeighborSearch enumerates, for every tree node and every PTG, the (node, ptg, alpha, d)
// candidates reaching query pose q within TP-distance radius, returned closest-first
// (SPEC_FULL.md §4.7).
func NeighborSearch(tree *Tree, ptgs []tpspace.PTG, ctx tpspace.Context, q kinematics.Pose, radius float64) []Candidate {
	refDistance := maxRefDistance(ptgs)
	var out []Candidate
	for i := 0; i < tree.Len(); i++ {
		id := NodeID(i)
		nodePose := tree.Node(id).State.Pose
		if cannotBeNearerThan(nodePose, q, radius, refDistance) {
			continue
		}
		rel := q.RelativeTo(nodePose)

		for pi, ptg := range ptgs {
			k, d, _ := ptg.InverseMap(ctx, rel.X, rel.Y)
			if d > 0 && d <= radius {
				out = append(out, Candidate{Node: id, PTGIndex: pi, AlphaIndex: k, Dist: d})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Dist < out[j].Dist })
	return out
}
