package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/taskpanel/taskpanel/internal/config"
	"github.com/taskpanel/taskpanel/internal/controller"
	"github.com/taskpanel/taskpanel/internal/engine"
	"github.com/taskpanel/taskpanel/internal/logstore"
	"github.com/taskpanel/taskpanel/internal/model"
	"github.com/taskpanel/taskpanel/internal/statestore"
	"github.com/taskpanel/taskpanel/internal/supervisor"
	"github.com/taskpanel/taskpanel/internal/tableparser"
	"github.com/taskpanel/taskpanel/internal/tui"
)

// errTasksFailed signals a clean run in which at least one task ended
// in a non-SUCCESS terminal state — REDESIGN FLAGS' exit-code-2 case.
var errTasksFailed = errors.New("one or more tasks did not succeed")

// pollInterval mirrors runner.py's run_loop poll cadence.
const pollInterval = 50 * time.Millisecond

func runTable(csvPath string) error {
	settings, err := config.Load(csvPath)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if workersFlag > 0 {
		settings.Workers = workersFlag
	}
	supervisor.GracePeriod = settings.KillGracePeriod

	sourceHash, err := statestore.HashFile(csvPath)
	if err != nil {
		return fmt.Errorf("hashing input table: %w", err)
	}

	logs := logstore.New(csvPath)
	if logRootFlag != "" {
		logs.Root = logRootFlag
	} else if settings.LogRoot != "" {
		logs.Root = settings.LogRoot
	}

	log.Debug("loading tasks from table", "path", csvPath)
	table, err := tableparser.Load(csvPath, logs.Root)
	if err != nil {
		return err
	}
	for _, w := range tableparser.SecretWarnings(table.Tasks) {
		log.Warn(w)
	}

	store := statestore.New(csvPath)
	if snap, err := store.Load(); err == nil && snap != nil {
		if snap.SourceCSVSHA256 != sourceHash {
			log.Debug("input table changed since last run; discarding saved state")
			if err := store.Discard(); err != nil {
				log.Warn("could not discard stale state file", "err", err)
			}
		} else {
			log.Debug("found state file; resuming")
			for _, w := range statestore.Resume(snap, table.Tasks) {
				log.Warn(w)
			}
		}
	} else if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	eng := engine.New(table.Tasks, logs, store, sourceHash, settings.Workers)
	ctl := controller.New(eng)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var view *tui.View
	if verbosity == 0 && tui.IsTTY(os.Stderr) {
		names := make([]string, len(table.Tasks))
		for i, t := range table.Tasks {
			names[i] = t.Name
		}
		view = tui.New(os.Stderr, names, table.Headers)
	}

	ctl.Start()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Debug("received interrupt; shutting down")
			ctl.Shutdown()
			if view != nil {
				view.Render(ctl.Snapshot())
			}
			return exitStatus(ctl.Snapshot())
		case <-ticker.C:
			snap := ctl.Snapshot()
			if view != nil {
				view.Render(snap)
			}
			if allTerminal(snap) {
				ctl.Shutdown()
				if view != nil {
					view.Render(ctl.Snapshot())
				}
				return exitStatus(ctl.Snapshot())
			}
		}
	}
}

func allTerminal(tasks []engine.TaskView) bool {
	for _, t := range tasks {
		for _, s := range t.Steps {
			if !s.Status.Terminal() {
				return false
			}
		}
	}
	return true
}

func exitStatus(tasks []engine.TaskView) error {
	for _, t := range tasks {
		for _, s := range t.Steps {
			if s.Status == model.Failed || s.Status == model.Killed {
				return errTasksFailed
			}
		}
	}
	return nil
}
