package planning

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/logging"
	"github.com/SRai22/selfdriving/obstacles"
	"github.com/SRai22/selfdriving/tpspace"
)

func defaultBBox() (kinematics.Pose, kinematics.Pose) {
	return kinematics.Pose{X: -5, Y: -5, Phi: -math.Pi}, kinematics.Pose{X: 5, Y: 5, Phi: math.Pi}
}

func defaultConfig(seed int64) Config {
	return Config{
		MaxIterations:       500,
		InitialSearchRadius: 2.0,
		GoalBias:            0.5,
		DrawInTPS:           false,
		MinStepLength:       0.1,
		MaxStepLength:       1.0,
		GoalTolerance:       GoalTolerance{Position: 0.2, Heading: math.Pi},
		Seed:                seed,
	}
}

// TestPlanTrivialReachability is scenario 1 from the testable-properties section: a short,
// unobstructed straight-line goal should be reached well under the worst-case cost.
func TestPlanTrivialReachability(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	out, err := Plan(context.Background(), input, defaultConfig(1), nil)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.True(t, out.HasBestGoalNode)
	assert.LessOrEqual(t, out.Tree.Node(out.BestGoalNode).CostToCome, 1.5)
}

// TestPlanBlockedStraightLine is scenario 2: an obstacle directly in front of the straight path
// forces a higher-cost detour but planning must still succeed.
func TestPlanBlockedStraightLine(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	cloud := obstacles.NewPointCloud2D([]r2.Point{
		{X: 0.45, Y: -0.05}, {X: 0.5, Y: 0}, {X: 0.55, Y: 0.05},
		{X: 0.5, Y: -0.1}, {X: 0.5, Y: 0.1},
	})
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.15})},
		Obstacles:    cloud,
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	cfg := defaultConfig(2)
	cfg.MaxIterations = 2000
	out, err := Plan(context.Background(), input, cfg, nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

// TestPlanUnreachableGoalIsPrecondViolation is scenario 3: a goal outside the bounding box must be
// rejected before planning starts.
func TestPlanUnreachableGoalIsPrecondViolation(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(100, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	_, err := Plan(context.Background(), input, defaultConfig(3), nil)
	require.Error(t, err)
	var planErr *Error
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, KindPrecondViolation, planErr.Kind)
}

func TestPlanDegenerateBBoxIsPrecondViolation(t *testing.T) {
	t.Parallel()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: kinematics.Pose{X: 5, Y: -5, Phi: -math.Pi},
		WorldBBoxMax: kinematics.Pose{X: -5, Y: 5, Phi: math.Pi},
	}

	_, err := Plan(context.Background(), input, defaultConfig(4), nil)
	require.Error(t, err)
}

// TestPlanZeroRadiusNeverSucceeds covers the "Radius = 0" boundary from the testable-properties
// section: no candidate can ever be within a zero TP-distance radius.
func TestPlanZeroRadiusNeverSucceeds(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	cfg := defaultConfig(5)
	cfg.InitialSearchRadius = 0
	cfg.GoalBias = 0
	out, err := Plan(context.Background(), input, cfg, nil)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, 1, out.Tree.Len()) // only the root; no candidate ever survives
}

func TestPlanGoalBiasOneAlwaysSamplesGoal(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	cfg := defaultConfig(6)
	cfg.GoalBias = 1.0
	cfg.MaxIterations = 50
	out, err := Plan(context.Background(), input, cfg, nil)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestPlanRespectsCancellation(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(1, 0, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := defaultConfig(7)
	cfg.MaxIterations = 10000
	out, err := Plan(ctx, input, cfg, nil)
	require.NoError(t, err)
	// the loop must bail out on the very first iteration once cancelled
	assert.Equal(t, 1, out.Tree.Len())
}

// TestIsAncestorDetectsRootPath covers the rewire cycle guard (SPEC_FULL.md §8's "no cycles" tree
// invariant): an ancestor of newID must never be accepted as a new child of newID.
func TestIsAncestorDetectsRootPath(t *testing.T) {
	t.Parallel()
	tree := NewTree()
	root := tree.InsertRoot(stateAt(0, 0, 0))
	a := tree.InsertChild(root, stateAt(1, 0, 0), 1.0, Edge{Parent: root})
	b := tree.InsertChild(a, stateAt(2, 0, 0), 2.0, Edge{Parent: a})

	assert.True(t, isAncestor(tree, root, b))
	assert.True(t, isAncestor(tree, a, b))
	assert.False(t, isAncestor(tree, b, a))
	assert.False(t, isAncestor(tree, root, root))
}

// TestPlanEuclideanSamplingExhaustionIsFatal is scenario-adjacent to SPEC_FULL.md §7's
// SamplingExhaustion: a bounding box small enough to be entirely covered by one obstacle's
// collision radius means every Euclidean sample is rejected, so sampleEuclidean must exhaust
// maxSampleAttempts and Plan must return a SamplingExhaustion error rather than loop forever.
func TestPlanEuclideanSamplingExhaustionIsFatal(t *testing.T) {
	t.Parallel()
	minBBox := kinematics.Pose{X: -0.1, Y: -0.1, Phi: -0.1}
	maxBBox := kinematics.Pose{X: 0.1, Y: 0.1, Phi: 0.1}
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(0.05, 0.05, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D([]r2.Point{{X: 0, Y: 0}}),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	cfg := defaultConfig(9)
	cfg.MaxIterations = 1
	cfg.GoalBias = 0

	_, err := Plan(context.Background(), input, cfg, nil)
	require.Error(t, err)
	var planErr *Error
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, KindSamplingExhaustion, planErr.Kind)
}

// TestRewireReparentsToStrictlyCheaperCost is scenario 7 from SPEC_FULL.md §8: a node initially
// routed through a longer detour must be reparented, at strictly lower cost, once a node offering
// a cheaper direct arc is inserted within radius.
func TestRewireReparentsToStrictlyCheaperCost(t *testing.T) {
	t.Parallel()
	ptg := tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})
	input := PlannerInput{
		PTGs:         []tpspace.PTG{ptg},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: kinematics.Pose{X: -5, Y: -5, Phi: -math.Pi},
		WorldBBoxMax: kinematics.Pose{X: 5, Y: 5, Phi: math.Pi},
	}
	cache := newObstacleCache(input.Obstacles, maxRefDistance(input.PTGs))

	tree := NewTree()
	root := tree.InsertRoot(kinematics.State{Pose: kinematics.NewPose(0, 0, 0)})
	// detour: reached from root at cost 5.0, far more than its straight-line distance warrants
	detour := tree.InsertChild(root, kinematics.State{Pose: kinematics.NewPose(2, 0, 0)}, 5.0, Edge{Parent: root})
	// cheap: a direct, low-cost arc from root, positioned so a direct arc from cheap to detour exists
	cheap := tree.InsertChild(root, kinematics.State{Pose: kinematics.NewPose(1, 0, 0)}, 1.0, Edge{Parent: root})

	rewire(tree, cache, input, cheap, 5.0)

	detourNode := tree.Node(detour)
	require.True(t, detourNode.HasParent)
	assert.Equal(t, cheap, detourNode.Parent)
	assert.Less(t, detourNode.CostToCome, 5.0)
	assert.InDelta(t, 2.0, detourNode.CostToCome, 1e-6)
}

// TestPlanEveryNodeSatisfiesTreeInvariants checks the testable-properties section's tree-shape,
// cost-monotonicity, and containment invariants hold across an entire run, including rewires.
func TestPlanEveryNodeSatisfiesTreeInvariants(t *testing.T) {
	t.Parallel()
	minBBox, maxBBox := defaultBBox()
	input := PlannerInput{
		StateStart:   kinematics.State{Pose: kinematics.NewPose(0, 0, 0)},
		StateGoal:    kinematics.State{Pose: kinematics.NewPose(2, 2, 0)},
		PTGs:         []tpspace.PTG{tpspace.NewDiffDriveC(121, 1.0, 1.0, 0.1, 2.0, tpspace.Circle{R: 0.2})},
		Obstacles:    obstacles.NewPointCloud2D(nil),
		WorldBBoxMin: minBBox,
		WorldBBoxMax: maxBBox,
	}

	cfg := defaultConfig(8)
	cfg.MaxIterations = 300
	out, err := Plan(context.Background(), input, cfg, logging.NewTestLogger(t))
	require.NoError(t, err)

	tree := out.Tree
	for i := 0; i < tree.Len(); i++ {
		id := NodeID(i)
		node := tree.Node(id)
		assert.True(t, node.State.Pose.InBBox(minBBox, maxBBox))

		if id == 0 {
			assert.False(t, node.HasParent)
			assert.Equal(t, 0.0, node.CostToCome)
			continue
		}
		require.True(t, node.HasParent)
		parent := tree.Node(node.Parent)
		edge := tree.Edge(id)
		assert.InDelta(t, parent.CostToCome+edge.Cost, node.CostToCome, 1e-6)
	}
}
