// Package planning implements the RRT*-style sampling-based planner over a motion-primitive tree
// whose edges are PTG trajectory segments: the tree itself, TP-space neighbor search, the
// per-node local-obstacle cache, and the main sample/connect/rewire loop.
package planning

import (
	"context"
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"go.uber.org/multierr"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/logging"
	"github.com/SRai22/selfdriving/obstacles"
	"github.com/SRai22/selfdriving/tpspace"
	"github.com/SRai22/selfdriving/utils"
)

// maxSampleAttempts bounds both sampling strategies (SPEC_FULL.md §4.9): a hard cap, not a
// probability.
const maxSampleAttempts = 1_000_000

// GoalTolerance is the {position, heading} tolerance defining the goal-reached predicate.
type GoalTolerance struct {
	Position float64
	Heading  float64
}

// Config holds every planner knob enumerated in SPEC_FULL.md §4.9.
type Config struct {
	MaxIterations        int
	InitialSearchRadius  float64
	GoalBias             float64
	DrawInTPS            bool
	MinStepLength        float64
	MaxStepLength        float64
	GoalTolerance        GoalTolerance
	RenderPathInterpSegs int
	DebugLogDecimation   int
	Seed                 int64
}

// PlannerInput is everything a planning run needs (SPEC_FULL.md §6).
type PlannerInput struct {
	StateStart, StateGoal kinematics.State
	PTGs                  []tpspace.PTG
	Obstacles             obstacles.Provider
	WorldBBoxMin          kinematics.Pose
	WorldBBoxMax          kinematics.Pose
}

// PlannerOutput is the planning run's result (SPEC_FULL.md §6).
type PlannerOutput struct {
	Input           PlannerInput
	Tree            *Tree
	Success         bool
	BestGoalNode    NodeID
	HasBestGoalNode bool
	Path            []NodeID
}

func validate(input PlannerInput) error {
	var errs []error
	min, max := input.WorldBBoxMin, input.WorldBBoxMax
	if min.X >= max.X || min.Y >= max.Y || min.Phi >= max.Phi {
		errs = append(errs, NewPrecondViolationError("degenerate workspace bounding box"))
	}
	if len(input.PTGs) == 0 {
		errs = append(errs, NewPrecondViolationError("no PTGs configured"))
	}
	if !input.StateStart.Pose.InBBox(min, max) {
		errs = append(errs, NewPrecondViolationError("start state outside bounding box"))
	}
	if !input.StateGoal.Pose.InBBox(min, max) {
		errs = append(errs, NewPrecondViolationError("goal state outside bounding box"))
	}
	return multierr.Combine(errs...)
}

func maxRefDistance(ptgs []tpspace.PTG) float64 {
	m := 0.0
	for _, p := range ptgs {
		if d := p.RefDistance(); d > m {
			m = d
		}
	}
	return m
}

// defaultContextAt builds the tpspace.Context the planner uses for every candidate evaluation
// (SPEC_FULL.md §4.9 step 3): aimed straight ahead, full speed, local velocity from the parent
// node's own twist.
func defaultContextAt(localVel kinematics.Twist) tpspace.Context {
	return tpspace.Context{
		LocalVelocity:  localVel,
		RelativeTarget: kinematics.NewPose(1, 0, 0),
		TargetRelSpeed: 1,
	}
}

func collisionFree(pose kinematics.Pose, input PlannerInput) bool {
	cp, _, ok := input.Obstacles.ClosestPoint(r2.Point{X: pose.X, Y: pose.Y})
	if !ok {
		return true
	}
	rel := kinematics.NewPose(cp.X, cp.Y, 0).RelativeTo(pose)
	for _, ptg := range input.PTGs {
		if ptg.RobotShape().Contains(rel.X, rel.Y) {
			return false
		}
	}
	return true
}

func sampleEuclidean(rnd *rand.Rand, input PlannerInput) (kinematics.Pose, bool) {
	min, max := input.WorldBBoxMin, input.WorldBBoxMax
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		x := min.X + rnd.Float64()*(max.X-min.X)
		y := min.Y + rnd.Float64()*(max.Y-min.Y)
		phi := min.Phi + rnd.Float64()*(max.Phi-min.Phi)
		pose := kinematics.NewPose(x, y, phi)
		if collisionFree(pose, input) {
			return pose, true
		}
	}
	return kinematics.Pose{}, false
}

func sampleTPS(rnd *rand.Rand, tree *Tree, input PlannerInput, cfg Config) (kinematics.Pose, bool) {
	min, max := input.WorldBBoxMin, input.WorldBBoxMax
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		nodeID := NodeID(utils.SampleRandomIntRange(0, tree.Len()-1, rnd))
		ptgIdx := utils.SampleRandomIntRange(0, len(input.PTGs)-1, rnd)
		ptg := input.PTGs[ptgIdx]
		k := utils.SampleRandomIntRange(0, ptg.AlphaCount()-1, rnd)
		d := cfg.MinStepLength + rnd.Float64()*(cfg.MaxStepLength-cfg.MinStepLength)

		node := tree.Node(nodeID)
		ctx := defaultContextAt(node.State.Twist.ToLocal(node.State.Pose.Phi))
		step, ok := ptg.GetPathStepForDist(ctx, k, d)
		if !ok {
			continue
		}
		relPose := ptg.GetPathPose(ctx, k, step)
		pose := node.State.Pose.Compose(relPose)
		if !pose.InBBox(min, max) {
			continue
		}
		if !collisionFree(pose, input) {
			continue
		}
		return pose, true
	}
	return kinematics.Pose{}, false
}

// candidateEdge is the fully-evaluated result of validating one neighbor-search Candidate against
// the collision evaluator: enough information to insert a tree node/edge if it wins.
type candidateEdge struct {
	parent   NodeID
	ptgIndex int
	alpha    int
	dist     float64 // absolute arc-length distance
	childRel kinematics.Pose
	childVel kinematics.Twist
	cost     float64
}

// evaluateCandidate validates candidate c: computes the TP-obstacle free distance at the parent's
// local obstacle set, rejects if the candidate's distance isn't strictly less than it or if the
// resulting child pose falls outside the workspace bounding box, and otherwise builds the edge's
// child relative pose/twist and cost (SPEC_FULL.md §4.9 step 3).
func evaluateCandidate(tree *Tree, cache *obstacleCache, input PlannerInput, c Candidate) (candidateEdge, bool) {
	ptg := input.PTGs[c.PTGIndex]
	node := tree.Node(c.Node)
	nodePose := node.State.Pose

	localVel := node.State.Twist.ToLocal(nodePose.Phi)
	ctx := defaultContextAt(localVel)

	absDist := c.Dist * ptg.RefDistance()

	freeDist := ptg.InitTPObstacle(c.AlphaIndex)
	for _, p := range cache.localObstacles(c.Node, nodePose) {
		freeDist = ptg.UpdateTPObstacle(ctx, p.X, p.Y, c.AlphaIndex, freeDist)
	}
	if !(absDist > 0 && absDist < freeDist) {
		return candidateEdge{}, false
	}

	step, ok := ptg.GetPathStepForDist(ctx, c.AlphaIndex, absDist)
	if !ok {
		return candidateEdge{}, false
	}

	childRel := ptg.GetPathPose(ctx, c.AlphaIndex, step)
	if !nodePose.Compose(childRel).InBBox(input.WorldBBoxMin, input.WorldBBoxMax) {
		return candidateEdge{}, false
	}
	childRelVel := ptg.GetPathTwist(ctx, c.AlphaIndex, step)
	childVel := childRelVel.ToWorld(nodePose.Phi)

	cost := node.CostToCome + absDist
	return candidateEdge{
		parent:   c.Node,
		ptgIndex: c.PTGIndex,
		alpha:    c.AlphaIndex,
		dist:     absDist,
		childRel: childRel,
		childVel: childVel,
		cost:     cost,
	}, true
}

func interpolatedPoses(ptg tpspace.PTG, ctx tpspace.Context, k, step, n int) []kinematics.Pose {
	if n <= 0 {
		return nil
	}
	poses := make([]kinematics.Pose, n+2)
	for i := 0; i <= n+1; i++ {
		s := step * i / (n + 1)
		poses[i] = ptg.GetPathPose(ctx, k, s)
	}
	return poses
}

func atGoal(pose kinematics.Pose, goal kinematics.Pose, tol GoalTolerance) bool {
	return pose.DistanceTo(goal) <= tol.Position && math.Abs(pose.HeadingDiff(goal)) <= tol.Heading
}

// propagateCost recomputes cost-to-come for id from its (possibly just-changed) parent and
// recurses into its children, implementing the rewire's "propagate via a work queue" step
// (SPEC_FULL.md §4.9 step 6).
func propagateCost(tree *Tree, id NodeID) {
	queue := []NodeID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		parent := tree.Node(cur).Parent
		newCost := tree.Node(parent).CostToCome + tree.Edge(cur).Cost
		tree.SetCost(cur, newCost)
		queue = append(queue, tree.Children(cur)...)
	}
}

// isAncestor reports whether candidate is on node's current root path, i.e. reparenting candidate
// onto node (one of its descendants) would create a cycle. Walks the parent chain from node, which is
// bounded by tree depth.
func isAncestor(tree *Tree, candidate, node NodeID) bool {
	for cur := node; tree.Node(cur).HasParent; {
		cur = tree.Node(cur).Parent
		if cur == candidate {
			return true
		}
	}
	return false
}

// rewire implements SPEC_FULL.md §4.9 step 6: for every other node within search radius of the
// newly inserted node, check whether routing through the new node is cheaper and collision-free;
// if so, reparent and propagate the cost delta to descendants.
func rewire(tree *Tree, cache *obstacleCache, input PlannerInput, newID NodeID, radius float64) {
	newNode := tree.Node(newID)
	newPose := newNode.State.Pose
	ctx := defaultContextAt(newNode.State.Twist.ToLocal(newPose.Phi))
	refDistance := maxRefDistance(input.PTGs)

	for i := 0; i < tree.Len(); i++ {
		x := NodeID(i)
		if x == newID || x == newNode.Parent || isAncestor(tree, x, newID) {
			continue
		}
		xPose := tree.Node(x).State.Pose
		if cannotBeNearerThan(newPose, xPose, radius, refDistance) {
			continue
		}
		rel := xPose.RelativeTo(newPose)

		var best *candidateEdge
		for pi, ptg := range input.PTGs {
			k, d, _ := ptg.InverseMap(ctx, rel.X, rel.Y)
			if !(d > 0 && d <= radius) {
				continue
			}
			ce, ok := evaluateCandidate(tree, cache, input, Candidate{Node: newID, PTGIndex: pi, AlphaIndex: k, Dist: d})
			if !ok {
				continue
			}
			if best == nil || ce.cost < best.cost {
				best = &ce
			}
		}
		if best == nil || best.cost >= tree.Node(x).CostToCome {
			continue
		}

		edge := Edge{
			Parent:         newID,
			PTGIndex:       best.ptgIndex,
			AlphaIndex:     best.alpha,
			Dist:           best.dist,
			TargetRelSpeed: 1,
			StateFrom:      newNode.State,
			StateTo:        kinematics.State{Pose: xPose, Twist: best.childVel},
			Cost:           best.dist,
		}
		tree.SetParent(x, newID, edge, best.cost)
		propagateCost(tree, x)
	}
}

// Plan runs the RRT* search loop described in SPEC_FULL.md §4.9, returning the built tree whether
// or not the goal was reached (GoalUnreached is reported via Success = false, not an error).
func Plan(ctx context.Context, input PlannerInput, cfg Config, logger logging.Logger) (*PlannerOutput, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	var plannerLogger logging.Logger
	if logger != nil {
		plannerLogger = logger.Sublogger("planner")
		for _, ptg := range input.PTGs {
			switch p := ptg.(type) {
			case *tpspace.DiffDriveC:
				p.SetLogger(logger.Sublogger("tpspace.diffdrive"))
			case *tpspace.HolonomicBlend:
				p.SetLogger(logger.Sublogger("tpspace.holonomicblend"))
			}
		}
	}

	tree := NewTree()
	root := tree.InsertRoot(input.StateStart)

	cache := newObstacleCache(input.Obstacles, maxRefDistance(input.PTGs))
	rnd := rand.New(rand.NewSource(cfg.Seed))

	out := &PlannerOutput{Input: input, Tree: tree}
	bestCost := math.Inf(1)

	if atGoal(input.StateStart.Pose, input.StateGoal.Pose, cfg.GoalTolerance) {
		out.Success = true
		out.HasBestGoalNode = true
		out.BestGoalNode = root
		bestCost = 0
	}

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if ctx.Err() != nil {
			break
		}

		var q kinematics.Pose
		switch {
		case rnd.Float64() < cfg.GoalBias:
			q = input.StateGoal.Pose
		case cfg.DrawInTPS:
			pose, ok := sampleTPS(rnd, tree, input, cfg)
			if !ok {
				return nil, NewSamplingExhaustionError("TP-space sampling exceeded maxSampleAttempts")
			}
			q = pose
		default:
			pose, ok := sampleEuclidean(rnd, input)
			if !ok {
				return nil, NewSamplingExhaustionError("Euclidean sampling exceeded maxSampleAttempts")
			}
			q = pose
		}

		closeNodes := NeighborSearch(tree, input.PTGs, defaultContextAt(kinematics.Twist{}), q, cfg.InitialSearchRadius)
		if len(closeNodes) == 0 {
			continue
		}

		var best *candidateEdge
		for _, c := range closeNodes {
			ce, ok := evaluateCandidate(tree, cache, input, c)
			if !ok {
				continue
			}
			if best == nil || ce.cost < best.cost {
				best = &ce
			}
		}
		if best == nil {
			continue
		}

		parentPose := tree.Node(best.parent).State.Pose
		childPose := parentPose.Compose(best.childRel)
		childState := kinematics.State{Pose: childPose, Twist: best.childVel}

		ptg := input.PTGs[best.ptgIndex]
		ptgCtx := defaultContextAt(tree.Node(best.parent).State.Twist.ToLocal(parentPose.Phi))
		step, _ := ptg.GetPathStepForDist(ptgCtx, best.alpha, best.dist)

		edge := Edge{
			Parent:            best.parent,
			PTGIndex:          best.ptgIndex,
			AlphaIndex:        best.alpha,
			Dist:              best.dist,
			TargetRelSpeed:    1,
			StateFrom:         tree.Node(best.parent).State,
			StateTo:           childState,
			Cost:              best.dist,
			InterpolatedPoses: interpolatedPoses(ptg, ptgCtx, best.alpha, step, cfg.RenderPathInterpSegs),
		}

		newID := tree.InsertChild(best.parent, childState, best.cost, edge)

		rewire(tree, cache, input, newID, cfg.InitialSearchRadius)

		if atGoal(childPose, input.StateGoal.Pose, cfg.GoalTolerance) {
			out.Success = true
			if best.cost < bestCost {
				bestCost = best.cost
				out.HasBestGoalNode = true
				out.BestGoalNode = newID
			}
		}

		if cfg.DebugLogDecimation > 0 && iter%cfg.DebugLogDecimation == 0 && plannerLogger != nil {
			plannerLogger.Debugw("planning progress", "iteration", iter, "treeSize", tree.Len())
		}
	}

	if out.HasBestGoalNode {
		out.Path = tree.ReconstructPath(out.BestGoalNode)
	}
	return out, nil
}
