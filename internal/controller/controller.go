// Package controller is the thin operation surface between a view
// (CLI, TUI, tests) and the engine — grounded on runner.py's
// AppController, stripped of its curses-specific view state.
package controller

import (
	"github.com/taskpanel/taskpanel/internal/engine"
)

// Controller exposes the handful of operations a view is allowed to
// trigger against the engine.
type Controller struct {
	Engine *engine.Engine
}

// New wraps an Engine in a Controller.
func New(e *engine.Engine) *Controller {
	return &Controller{Engine: e}
}

// Start launches every task with at least one incomplete step.
func (c *Controller) Start() {
	c.Engine.StartInitial()
}

// Rerun re-executes task taskIdx from startStep, provided every
// preceding step already succeeded.
func (c *Controller) Rerun(taskIdx, startStep int) error {
	return c.Engine.Rerun(taskIdx, startStep)
}

// Kill stops task taskIdx's current step and skips the remainder.
func (c *Controller) Kill(taskIdx int) {
	c.Engine.Kill(taskIdx)
}

// Shutdown performs a graceful shutdown: every in-flight process group
// is killed, a final state snapshot is written, and Shutdown does not
// return until every engine goroutine has exited.
func (c *Controller) Shutdown() {
	c.Engine.Cleanup()
}

// Snapshot returns the current display state of every task.
func (c *Controller) Snapshot() []engine.TaskView {
	return c.Engine.Snapshot()
}
