package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openLogs(t *testing.T, dir string) (*os.File, *os.File) {
	t.Helper()
	stdout, err := os.Create(filepath.Join(dir, "stdout.log"))
	if err != nil {
		t.Fatal(err)
	}
	stderr, err := os.Create(filepath.Join(dir, "stderr.log"))
	if err != nil {
		t.Fatal(err)
	}
	return stdout, stderr
}

func TestLaunchWaitSuccess(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr := openLogs(t, dir)
	defer stdout.Close()
	defer stderr.Close()

	cmd, err := Launch("echo hello", stdout, stderr)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if code := Wait(cmd); code != 0 {
		t.Fatalf("Wait() = %d, want 0", code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stdout.log"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("stdout = %q, want %q", data, "hello\n")
	}
}

func TestLaunchWaitNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr := openLogs(t, dir)
	defer stdout.Close()
	defer stderr.Close()

	cmd, err := Launch("exit 3", stdout, stderr)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if code := Wait(cmd); code != 3 {
		t.Fatalf("Wait() = %d, want 3", code)
	}
}

func TestKillGroupStopsLongRunningProcess(t *testing.T) {
	GracePeriod = 200 * time.Millisecond
	defer func() { GracePeriod = 2 * time.Second }()

	dir := t.TempDir()
	stdout, stderr := openLogs(t, dir)
	defer stdout.Close()
	defer stderr.Close()

	cmd, err := Launch("sleep 30", stdout, stderr)
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- Wait(cmd) }()

	KillGroup(cmd)

	select {
	case code := <-done:
		if code == 0 {
			t.Fatal("Wait() = 0, want non-zero for killed process")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("process was not reaped within 3s of KillGroup returning")
	}
}
