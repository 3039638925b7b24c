// Package engine is the task execution core: the generation-counter
// protocol, the per-task step loop, and rerun/kill/cleanup.
//
// Grounded directly on model.py's TaskModel: run_task_row is
// RunTask/the per-step loop below, rerun_task_from_step is Rerun,
// kill_task_row is Kill, and cleanup is Cleanup. The single mutex
// replaces the Python RLock; see SPEC_FULL.md §5 for why no
// re-entrant lock is needed in the Go port.
package engine

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/taskpanel/taskpanel/internal/logstore"
	"github.com/taskpanel/taskpanel/internal/model"
	"github.com/taskpanel/taskpanel/internal/scheduler"
	"github.com/taskpanel/taskpanel/internal/statestore"
	"github.com/taskpanel/taskpanel/internal/supervisor"
)

// Engine owns the task table, the lock guarding it, and the
// collaborators needed to run, persist, and log a step.
type Engine struct {
	mu    sync.Mutex
	Tasks []*model.Task

	logs       *logstore.Store
	state      *statestore.Store
	sourceHash string
	sched      *scheduler.Scheduler
}

// New builds an Engine for the given tasks. sourceHash is the SHA-256
// of the input CSV, stamped into every persisted snapshot.
func New(tasks []*model.Task, logs *logstore.Store, state *statestore.Store, sourceHash string, workers int) *Engine {
	return &Engine{
		Tasks:      tasks,
		logs:       logs,
		state:      state,
		sourceHash: sourceHash,
		sched:      scheduler.New(workers),
	}
}

// StartInitial submits every task that has at least one incomplete
// step, resuming each from its first non-SUCCESS step.
func (e *Engine) StartInitial() {
	for idx, task := range e.Tasks {
		start := task.FirstIncompleteStep()
		if start < 0 {
			continue
		}
		gen := e.bumpGen(idx)
		e.submit(idx, start, gen)
	}
}

func (e *Engine) bumpGen(taskIdx int) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Tasks[taskIdx].RunCounter++
	return e.Tasks[taskIdx].RunCounter
}

func (e *Engine) submit(taskIdx, startStep int, gen uint64) {
	e.sched.Submit(func() { e.RunTask(taskIdx, gen, startStep) })
}

// RunTask runs task taskIdx's steps sequentially starting at startStep,
// stopping as soon as a step fails, gets superseded by a newer
// generation, or the task runs out of steps. It is the Go translation
// of model.py's run_task_row, unrolled into a loop since steps within
// one task are always sequential.
func (e *Engine) RunTask(taskIdx int, gen uint64, startStep int) {
	task := e.Tasks[taskIdx]

	for i := startStep; i < len(task.Steps); i++ {
		switch e.beginStep(task, i, gen) {
		case stepAbort:
			return
		case stepSkip:
			continue
		}
		step := task.Steps[i]

		stdout, stderr, err := e.openStepLogs(step)
		if err != nil {
			e.failStep(task, i, gen, fmt.Sprintf("could not open log files: %v", err))
			return
		}

		cmd, err := supervisor.Launch(step.Command, stdout, stderr)
		if err != nil {
			stdout.Close()
			stderr.Close()
			e.failStep(task, i, gen, fmt.Sprintf("launch failed: %v", err))
			return
		}

		if !e.storeHandle(task, i, gen, cmd) {
			supervisor.KillGroup(cmd)
			stdout.Close()
			stderr.Close()
			return
		}

		exitCode := supervisor.Wait(cmd)
		stdout.Close()
		stderr.Close()

		if !e.finalizeStep(task, i, gen, exitCode) {
			return
		}
	}
}

func (e *Engine) openStepLogs(step *model.Step) (stdout, stderr *os.File, err error) {
	if err := e.logs.Prepare(step.LogPathStdout); err != nil {
		return nil, nil, err
	}
	stdout, err = os.OpenFile(step.LogPathStdout, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	stderr, err = os.OpenFile(step.LogPathStderr, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		stdout.Close()
		return nil, nil, err
	}
	return stdout, stderr, nil
}

// stepStart is beginStep's outcome: run the step now, skip past it and
// continue the loop, or abort the whole task (superseded generation).
type stepStart int

const (
	stepRun stepStart = iota
	stepSkip
	stepAbort
)

// beginStep transitions a step to RUNNING, unless gen has been
// superseded (stepAbort) or the step was already moved out of PENDING
// by an external action such as Rerun/Kill (stepSkip) — the §4.3.2
// step-1 guard from model.py:236 ("if step.status != Status.PENDING:
// ... continue"), which stops a resumed run from re-executing a step
// whose terminal status was already restored from disk.
func (e *Engine) beginStep(task *model.Task, i int, gen uint64) stepStart {
	e.mu.Lock()
	defer e.mu.Unlock()
	if task.RunCounter != gen {
		return stepAbort
	}
	step := task.Steps[i]
	if step.Status != model.Pending {
		step.AppendDebug(fmt.Sprintf("skipped: status is %s, not PENDING", step.Status))
		return stepSkip
	}
	step.Status = model.Running
	step.StartTime = time.Now()
	log.Debug("step starting", "task", task.Name, "step", i)
	return stepRun
}

// storeHandle records the live process handle, unless a rerun/kill has
// superseded this run since it was launched.
func (e *Engine) storeHandle(task *model.Task, i int, gen uint64, cmd *exec.Cmd) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if task.RunCounter != gen {
		return false
	}
	task.Steps[i].Process = cmd
	return true
}

func (e *Engine) finalizeStep(task *model.Task, i int, gen uint64, exitCode int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if task.RunCounter != gen {
		return false
	}
	step := task.Steps[i]
	step.Process = nil

	if exitCode == 0 {
		step.Status = model.Success
		log.Debug("step succeeded", "task", task.Name, "step", i)
		e.persistLocked()
		return true
	}

	step.Status = model.Failed
	log.Debug("step failed", "task", task.Name, "step", i, "exit", exitCode)
	for j := i + 1; j < len(task.Steps); j++ {
		if task.Steps[j].Status == model.Pending {
			task.Steps[j].Status = model.Skipped
		}
	}
	e.persistLocked()
	return false
}

func (e *Engine) failStep(task *model.Task, i int, gen uint64, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if task.RunCounter != gen {
		return
	}
	step := task.Steps[i]
	step.Status = model.Failed
	step.AppendDebug(msg)
	for j := i + 1; j < len(task.Steps); j++ {
		if task.Steps[j].Status == model.Pending {
			task.Steps[j].Status = model.Skipped
		}
	}
	e.persistLocked()
}

// Rerun resets and resubmits task taskIdx starting at startStep,
// provided every step before startStep already succeeded — the same
// policy as runner.py's _handle_rerun.
func (e *Engine) Rerun(taskIdx, startStep int) error {
	e.mu.Lock()
	task := e.Tasks[taskIdx]
	for i := 0; i < startStep && i < len(task.Steps); i++ {
		if task.Steps[i].Status != model.Success {
			e.mu.Unlock()
			return fmt.Errorf("cannot rerun task %q from step %d: step %d is not SUCCESS", task.Name, startStep, i)
		}
	}

	task.RunCounter++
	gen := task.RunCounter
	for i := startStep; i < len(task.Steps); i++ {
		step := task.Steps[i]
		if step.Status == model.Running && step.Process != nil {
			supervisor.KillGroup(step.Process)
		}
		step.Status = model.Pending
		step.StartTime = time.Time{}
		step.Process = nil
		logstore.Truncate(step.LogPathStdout, step.LogPathStderr)
	}
	e.mu.Unlock()

	e.submit(taskIdx, startStep, gen)
	return nil
}

// Kill stops task taskIdx's currently-running step (if any) and marks
// every step after it SKIPPED, mirroring model.py's kill_task_row.
func (e *Engine) Kill(taskIdx int) {
	e.mu.Lock()
	task := e.Tasks[taskIdx]
	task.RunCounter++

	found := false
	for _, step := range task.Steps {
		if found {
			if step.Status == model.Pending {
				step.Status = model.Skipped
			}
			continue
		}
		if step.Status == model.Running {
			if step.Process != nil {
				supervisor.KillGroup(step.Process)
			}
			step.Status = model.Killed
			step.Process = nil
			found = true
		}
	}
	e.persistLocked()
	e.mu.Unlock()
}

// Cleanup bumps every task's generation (so no stray finalize can
// mutate state afterward), kills every live process group, and
// persists a final snapshot. Called on graceful shutdown.
func (e *Engine) Cleanup() {
	e.mu.Lock()
	for _, task := range e.Tasks {
		task.RunCounter++
		for _, step := range task.Steps {
			if step.Process != nil {
				supervisor.KillGroup(step.Process)
				step.Process = nil
			}
		}
	}
	e.persistLocked()
	e.mu.Unlock()

	e.sched.Wait()
}

// persistLocked saves a snapshot of the current task state. Must be
// called with e.mu held; statestore.Save only reads step.Status, so
// the write happens synchronously within the critical section rather
// than risk persisting a state that a concurrent mutation has since
// moved on from.
func (e *Engine) persistLocked() {
	if err := e.state.Save(e.sourceHash, e.Tasks); err != nil {
		log.Error("persisting state failed", "err", err)
	}
}

// Snapshot returns a read-only copy of task/step display state for the
// status view, taken under the lock and safe to use without it.
func (e *Engine) Snapshot() []TaskView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]TaskView, len(e.Tasks))
	for i, t := range e.Tasks {
		tv := TaskView{ID: t.ID, Name: t.Name, Info: t.Info}
		for _, s := range t.Steps {
			tv.Steps = append(tv.Steps, StepView{
				Status:        s.Status,
				StartTime:     s.StartTime,
				LogPathStdout: s.LogPathStdout,
			})
		}
		out[i] = tv
	}
	return out
}

// TaskView and StepView are display-only copies of engine state,
// returned by value so the TUI never touches the engine's lock.
type TaskView struct {
	ID    int
	Name  string
	Info  string
	Steps []StepView
}

type StepView struct {
	Status        model.Status
	StartTime     time.Time
	LogPathStdout string
}
