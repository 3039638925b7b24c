package model

import "testing"

func TestStatusTerminal(t *testing.T) {
	cases := map[Status]bool{
		Pending: false,
		Running: false,
		Success: true,
		Failed:  true,
		Skipped: true,
		Killed:  true,
	}
	for st, want := range cases {
		if got := st.Terminal(); got != want {
			t.Errorf("Status(%s).Terminal() = %v, want %v", st, got, want)
		}
	}
}

func TestStepDebugLogRingBeforeWrap(t *testing.T) {
	s := &Step{}
	s.AppendDebug("a")
	s.AppendDebug("b")
	s.AppendDebug("c")

	got := s.DebugLog()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("DebugLog() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DebugLog()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStepDebugLogRingWraps(t *testing.T) {
	s := &Step{}
	for i := 0; i < debugLogCap+5; i++ {
		s.AppendDebug(string(rune('a' + (i % 26))))
	}

	got := s.DebugLog()
	if len(got) != debugLogCap {
		t.Fatalf("DebugLog() len = %d, want %d", len(got), debugLogCap)
	}
}

func TestTaskFirstIncompleteStep(t *testing.T) {
	task := &Task{Steps: []*Step{
		{Status: Success},
		{Status: Success},
		{Status: Pending},
		{Status: Pending},
	}}
	if got := task.FirstIncompleteStep(); got != 2 {
		t.Fatalf("FirstIncompleteStep() = %d, want 2", got)
	}

	task.Steps[2].Status = Success
	task.Steps[3].Status = Success
	if got := task.FirstIncompleteStep(); got != -1 {
		t.Fatalf("FirstIncompleteStep() = %d, want -1", got)
	}
}
