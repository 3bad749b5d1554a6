package main

import (
	"fmt"
	"log/slog"

	"github.com/chazu/tendon/internal/logger"
	"github.com/chazu/tendon/pkg/engine"
	"github.com/chazu/tendon/pkg/hierarchy"
	"github.com/chazu/tendon/pkg/kernel"
	"github.com/chazu/tendon/pkg/kernel/sdfx"
	"github.com/chazu/tendon/pkg/rig"
	"github.com/chazu/tendon/pkg/tessellate"
)

// App ties the rig engine, the evaluator and the gizmo kernel together.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *slog.Logger
}

// JointPose is the JSON-serializable world pose of one joint.
type JointPose struct {
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"` // w, x, y, z
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// GizmoStats summarizes the gizmo meshes built for the final pose.
type GizmoStats struct {
	Meshes    int            `json:"meshes"`
	Triangles int            `json:"triangles"`
	PerJoint  map[string]int `json:"per_joint"`
}

// Report is the full result of a run.
type Report struct {
	Frames      uint64          `json:"frames"`
	Joints      []JointPose     `json:"joints"`
	Constraints []string        `json:"constraints"`
	Diagnostics []string        `json:"diagnostics"`
	Errors      []EvalErrorData `json:"errors"`
	Warnings    []EvalErrorData `json:"warnings"`
	Gizmos      *GizmoStats     `json:"gizmos,omitempty"`
}

// RunOptions controls a single Run.
type RunOptions struct {
	Frames   int
	Gizmos   bool
	Controls []string
}

// NewApp creates an App whose gizmo kernel meshes at the given resolution.
func NewApp(cells int) *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: sdfx.NewWithCells(cells),
		log:    logger.ForComponent("app"),
	}
}

// Run evaluates source into a rig, simulates the requested frames and
// reports the resulting pose. Source errors are returned inside the report;
// the error result is reserved for fatal failures.
func (a *App) Run(source string, opts RunOptions) (Report, error) {
	report := Report{
		Joints:      []JointPose{},
		Constraints: []string{},
		Diagnostics: []string{},
		Errors:      []EvalErrorData{},
		Warnings:    []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a rig description.
	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		return report, fmt.Errorf("evaluate: %w", err)
	}
	for _, w := range res.Warnings {
		report.Warnings = append(report.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			report.Errors = append(report.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return report, nil
	}

	// Step 2: Bind the constraints. Invalid ones become diagnostics.
	r, err := rig.New(res.Desc, slog.Default())
	if err != nil {
		return report, fmt.Errorf("build rig: %w", err)
	}
	defer r.Destroy()
	report.Constraints = r.Built()
	for _, d := range r.Diagnostics() {
		report.Diagnostics = append(report.Diagnostics, d.String())
	}

	// Step 3: Run the frames.
	for i := 0; i < opts.Frames; i++ {
		r.Evaluate()
	}
	report.Frames = r.Frame()
	report.Joints = poses(r.Hierarchy())
	a.log.Info("rig evaluated", "frames", report.Frames, "joints", len(report.Joints),
		"constraints", len(report.Constraints), "diagnostics", len(report.Diagnostics))

	// Step 4: Optionally tessellate the final pose.
	if opts.Gizmos {
		gopts := tessellate.DefaultOptions()
		gopts.Controls = opts.Controls
		meshes, err := tessellate.Bones(r.Hierarchy(), a.kernel, gopts)
		if err != nil {
			return report, fmt.Errorf("gizmos: %w", err)
		}
		report.Gizmos = gizmoStats(meshes)
	}
	return report, nil
}

// poses returns the world pose of every joint ordered by name.
func poses(h *hierarchy.Hierarchy) []JointPose {
	nodes := h.SortedNodes()
	out := make([]JointPose, 0, len(nodes))
	for _, n := range nodes {
		w := h.World(n.ID)
		out = append(out, JointPose{
			Name:     n.Name,
			Position: [3]float64{w.Position.X(), w.Position.Y(), w.Position.Z()},
			Rotation: [4]float64{w.Rotation.W, w.Rotation.V.X(), w.Rotation.V.Y(), w.Rotation.V.Z()},
		})
	}
	return out
}

func gizmoStats(meshes []*kernel.Mesh) *GizmoStats {
	stats := &GizmoStats{Meshes: len(meshes), PerJoint: make(map[string]int, len(meshes))}
	for _, m := range meshes {
		stats.Triangles += m.TriangleCount()
		stats.PerJoint[m.Joint] = m.TriangleCount()
	}
	return stats
}
