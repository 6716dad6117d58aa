// Package behavior runs small Tengo scripts that animate scene nodes each
// frame. Scripts read t, dt and the node's local position/yaw and write the
// same variables back; they are how demo scenes drive the per-frame collider
// pose sync without hand-written Go.
package behavior

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/common"
	"github.com/jmheld/tether/scene"
)

// Script is a compiled node behavior.
type Script struct {
	name     string
	compiled *tengo.Compiled
}

// Compile compiles src with the math stdlib module and the node variables
// pre-declared.
func Compile(name string, src []byte) (*Script, error) {
	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap("math"))
	for _, v := range []string{"t", "dt", "x", "y", "z", "yaw"} {
		if err := script.Add(v, 0.0); err != nil {
			return nil, fmt.Errorf("behavior: declare %s in %s: %w", v, name, err)
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("behavior: compile %s: %w", name, err)
	}
	return &Script{name: name, compiled: compiled}, nil
}

// Step runs the script once against the node's local transform.
func (s *Script) Step(node *scene.Node, t, dt float64) error {
	if s == nil || s.compiled == nil || node == nil {
		return nil
	}

	run := s.compiled.Clone()
	pos := node.Position()
	vars := map[string]float64{
		"t":   t,
		"dt":  dt,
		"x":   pos[0],
		"y":   pos[1],
		"z":   pos[2],
		"yaw": common.Yaw(node.Rotation()),
	}
	for name, v := range vars {
		if err := run.Set(name, v); err != nil {
			return fmt.Errorf("behavior: set %s in %s: %w", name, s.name, err)
		}
	}

	if err := run.Run(); err != nil {
		return fmt.Errorf("behavior: run %s: %w", s.name, err)
	}

	node.SetPosition(mgl64.Vec3{
		run.Get("x").Float(),
		run.Get("y").Float(),
		run.Get("z").Float(),
	})
	node.SetRotation(common.QuatFromYaw(run.Get("yaw").Float()))
	return nil
}

// Runner steps a script against a node every loop frame.
type Runner struct {
	script *Script
	node   *scene.Node
	t      float64
	err    error
	handle *scene.FrameHandle
}

// Attach registers the script on the loop with auto-start.
func Attach(loop *scene.Loop, node *scene.Node, script *Script) *Runner {
	r := &Runner{script: script, node: node}
	r.handle = loop.OnFrame(r.step, true)
	return r
}

func (r *Runner) step(dt float64) {
	if r.err != nil {
		return
	}
	r.t += dt
	if err := r.script.Step(r.node, r.t, dt); err != nil {
		// stop on first script fault instead of spamming every frame
		r.err = err
		r.handle.Stop()
	}
}

// Err returns the fault that stopped the runner, if any.
func (r *Runner) Err() error {
	if r == nil {
		return nil
	}
	return r.err
}

// Stop halts the runner permanently.
func (r *Runner) Stop() {
	if r == nil || r.handle == nil {
		return
	}
	r.handle.Remove()
}
