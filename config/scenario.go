// Package config decodes a planning scenario — start/goal states, the workspace bounding box,
// obstacle points, and PTG parameter sets — from YAML, per SPEC_FULL.md §6's "concrete, in-scope
// config loader" addition. It does not constrain anything the core planner doesn't already
// require; it only builds the PlannerInput/Config values by hand construction would otherwise
// need.
package config

import (
	"fmt"
	"os"

	"github.com/golang/geo/r2"
	"gopkg.in/yaml.v3"

	"github.com/SRai22/selfdriving/kinematics"
	"github.com/SRai22/selfdriving/obstacles"
	"github.com/SRai22/selfdriving/planning"
	"github.com/SRai22/selfdriving/tpspace"
)

// Pose2D is the YAML-facing pose representation; decoded into kinematics.Pose via ToPose.
type Pose2D struct {
	X   float64 `yaml:"x"`
	Y   float64 `yaml:"y"`
	Phi float64 `yaml:"phi"`
}

// ToPose converts a decoded Pose2D into a kinematics.Pose.
func (p Pose2D) ToPose() kinematics.Pose { return kinematics.NewPose(p.X, p.Y, p.Phi) }

// Point2D is a single obstacle point in the scenario's obstacle cloud.
type Point2D struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// PTGConfig is one entry of the scenario's PTG list. Type selects which family Build constructs;
// the remaining fields are interpreted according to Type and left zero otherwise.
type PTGConfig struct {
	Type string `yaml:"type"`

	AlphaCount int `yaml:"alphaCount"`

	VMax                   float64 `yaml:"vMax"`
	WMax                   float64 `yaml:"wMax"`
	TurningRadiusReference float64 `yaml:"turningRadiusReference"`
	RefDistance            float64 `yaml:"refDistance"`
	ShapeRadius            float64 `yaml:"shapeRadius"`

	// K is the DiffDrive-C curve-direction sign; defaults to +1 (forward) when zero.
	K float64 `yaml:"k"`

	// TRampMax, ExprV, ExprW, ExprTRamp are HolonomicBlend-only; ExprV/ExprW/ExprTRamp default to
	// "V_MAX"/"W_MAX"/"T_ramp_max" when empty, matching SPEC_FULL.md §6's documented defaults.
	TRampMax  float64 `yaml:"tRampMax"`
	ExprV     string  `yaml:"exprV"`
	ExprW     string  `yaml:"exprW"`
	ExprTRamp string  `yaml:"exprTRamp"`
}

// Build constructs the concrete tpspace.PTG this config describes.
func (c PTGConfig) Build() (tpspace.PTG, error) {
	shape := tpspace.Circle{R: c.ShapeRadius}
	switch c.Type {
	case "diffdrivec", "":
		ptg := tpspace.NewDiffDriveC(c.AlphaCount, c.VMax, c.WMax, c.TurningRadiusReference, c.RefDistance, shape)
		if c.K < 0 {
			ptg.K = -1
		}
		return ptg, nil
	case "holonomicblend":
		exprV, exprW, exprTRamp := c.ExprV, c.ExprW, c.ExprTRamp
		if exprV == "" {
			exprV = "V_MAX"
		}
		if exprW == "" {
			exprW = "W_MAX"
		}
		if exprTRamp == "" {
			exprTRamp = "T_ramp_max"
		}
		ptg, err := tpspace.NewHolonomicBlend(c.AlphaCount, c.VMax, c.WMax, c.TRampMax, c.TurningRadiusReference, c.RefDistance, shape, exprV, exprW, exprTRamp)
		if err != nil {
			return nil, fmt.Errorf("config: ptg %q: %w", c.Type, err)
		}
		return ptg, nil
	default:
		return nil, fmt.Errorf("config: unknown ptg type %q", c.Type)
	}
}

// GoalToleranceConfig is the YAML-facing GoalTolerance.
type GoalToleranceConfig struct {
	Position float64 `yaml:"position"`
	Heading  float64 `yaml:"heading"`
}

// PlannerConfig is the YAML-facing planning.Config.
type PlannerConfig struct {
	MaxIterations        int                 `yaml:"maxIterations"`
	InitialSearchRadius  float64             `yaml:"initialSearchRadius"`
	GoalBias             float64             `yaml:"goalBias"`
	DrawInTPS            bool                `yaml:"drawInTPS"`
	MinStepLength        float64             `yaml:"minStepLength"`
	MaxStepLength        float64             `yaml:"maxStepLength"`
	GoalTolerance        GoalToleranceConfig `yaml:"goalTolerance"`
	RenderPathInterpSegs int                 `yaml:"renderPathInterpSegs"`
	DebugLogDecimation   int                 `yaml:"debugLogDecimation"`
	Seed                 int64               `yaml:"seed"`
}

// ToPlannerConfig converts the decoded YAML planner block into a planning.Config.
func (c PlannerConfig) ToPlannerConfig() planning.Config {
	return planning.Config{
		MaxIterations:       c.MaxIterations,
		InitialSearchRadius: c.InitialSearchRadius,
		GoalBias:            c.GoalBias,
		DrawInTPS:           c.DrawInTPS,
		MinStepLength:       c.MinStepLength,
		MaxStepLength:       c.MaxStepLength,
		GoalTolerance: planning.GoalTolerance{
			Position: c.GoalTolerance.Position,
			Heading:  c.GoalTolerance.Heading,
		},
		RenderPathInterpSegs: c.RenderPathInterpSegs,
		DebugLogDecimation:   c.DebugLogDecimation,
		Seed:                 c.Seed,
	}
}

// Scenario is the top-level scenario file shape (SPEC_FULL.md §6, Testable Property 8).
type Scenario struct {
	Start   Pose2D `yaml:"start"`
	Goal    Pose2D `yaml:"goal"`
	BBoxMin Pose2D `yaml:"bboxMin"`
	BBoxMax Pose2D `yaml:"bboxMax"`

	Obstacles []Point2D   `yaml:"obstacles"`
	PTGs      []PTGConfig `yaml:"ptgs"`

	Planner PlannerConfig `yaml:"planner"`
}

// Load reads and decodes a scenario file from path.
func Load(path string) (*Scenario, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(content, &s); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &s, nil
}

// ToPlannerInput builds a planning.PlannerInput from the decoded scenario, constructing every
// configured PTG and the obstacle point cloud.
func (s *Scenario) ToPlannerInput() (planning.PlannerInput, error) {
	if len(s.PTGs) == 0 {
		return planning.PlannerInput{}, fmt.Errorf("config: scenario defines no ptgs")
	}
	ptgs := make([]tpspace.PTG, 0, len(s.PTGs))
	for i, pc := range s.PTGs {
		ptg, err := pc.Build()
		if err != nil {
			return planning.PlannerInput{}, fmt.Errorf("config: ptgs[%d]: %w", i, err)
		}
		ptgs = append(ptgs, ptg)
	}

	points := make([]r2.Point, len(s.Obstacles))
	for i, o := range s.Obstacles {
		points[i] = r2.Point{X: o.X, Y: o.Y}
	}

	return planning.PlannerInput{
		StateStart:   kinematics.State{Pose: s.Start.ToPose()},
		StateGoal:    kinematics.State{Pose: s.Goal.ToPose()},
		PTGs:         ptgs,
		Obstacles:    obstacles.NewPointCloud2D(points),
		WorldBBoxMin: s.BBoxMin.ToPose(),
		WorldBBoxMax: s.BBoxMax.ToPose(),
	}, nil
}
