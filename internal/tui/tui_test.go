package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taskpanel/taskpanel/internal/engine"
	"github.com/taskpanel/taskpanel/internal/model"
)

func TestRenderPrintsHeaderLineOnce(t *testing.T) {
	var buf bytes.Buffer
	v := New(&buf, []string{"build"}, []string{"name", "info"})

	v.Render([]engine.TaskView{{Name: "build", Steps: []engine.StepView{{Status: model.Success}}}})

	out := buf.String()
	if !strings.Contains(out, "name") || !strings.Contains(out, "info") {
		t.Fatalf("Render() output missing header row: %q", out)
	}
}

func TestRenderOmitsHeaderWhenNoneGiven(t *testing.T) {
	var buf bytes.Buffer
	v := New(&buf, []string{"build"}, nil)

	v.Render([]engine.TaskView{{Name: "build", Steps: []engine.StepView{{Status: model.Success}}}})

	if strings.Count(buf.String(), "\n") != 1 {
		t.Fatalf("Render() without headers should emit exactly one line, got %q", buf.String())
	}
}

func TestRenderShowsTailOfRunningStepOutput(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "step0.stdout.log")
	if err := os.WriteFile(logPath, []byte("building...\ncompiling main.go\n"), 0o644); err != nil {
		t.Fatalf("writing fixture log: %v", err)
	}

	var buf bytes.Buffer
	v := New(&buf, []string{"build"}, nil)

	v.Render([]engine.TaskView{{
		Name: "build",
		Steps: []engine.StepView{
			{Status: model.Running, LogPathStdout: logPath},
		},
	}})

	if !strings.Contains(buf.String(), "compiling main.go") {
		t.Fatalf("Render() should surface the running step's last output line, got %q", buf.String())
	}
}

func TestClipTruncatesVisibleWidthIgnoringEscapes(t *testing.T) {
	s := colorRed + "abcdefgh" + colorReset
	got := clip(s, 4)
	visible := strings.ReplaceAll(strings.ReplaceAll(got, colorRed, ""), colorReset, "")
	if visible != "abcd" {
		t.Fatalf("clip() visible text = %q, want %q", visible, "abcd")
	}
}

func TestClipNoOpWhenUnderWidth(t *testing.T) {
	s := "short"
	if got := clip(s, 80); got != s {
		t.Fatalf("clip() = %q, want unchanged %q", got, s)
	}
}
