package core

import (
	"testing"
	"time"
)

func TestTaskStatus_Terminal(t *testing.T) {
	terminal := []TaskStatus{StatusCompleted, StatusFailed, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []TaskStatus{StatusPending, StatusRunning, StatusPaused} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTaskConfig_Normalize(t *testing.T) {
	cfg := TaskConfig{MaxIterations: 3}.Normalize()
	if cfg.MaxIterations != 3 {
		t.Errorf("explicit budget should survive, got %d", cfg.MaxIterations)
	}
	if cfg.MaxToolCalls <= 0 || cfg.Timeout <= 0 {
		t.Errorf("zero budgets should be defaulted: %+v", cfg)
	}
}

func TestTask_Clone(t *testing.T) {
	task := NewTask("owner-1", "do something", DefaultTaskConfig())
	task.WorkingMemory["k"] = "v"
	task.Artifacts = []string{"a1"}
	now := time.Now().UTC()
	task.StartedAt = &now

	clone := task.Clone()
	if clone == task {
		t.Fatal("Clone should be a different pointer")
	}
	clone.WorkingMemory["k2"] = "v2"
	clone.Artifacts = append(clone.Artifacts, "a2")
	if _, exists := task.WorkingMemory["k2"]; exists {
		t.Error("original should not see clone's working memory writes")
	}
	if len(task.Artifacts) != 1 {
		t.Error("original artifact list should be unchanged")
	}
	*clone.StartedAt = now.Add(time.Hour)
	if !task.StartedAt.Equal(now) {
		t.Error("timestamp pointers should be deep copied")
	}
}

func TestQueueEntry_Before(t *testing.T) {
	a := NewQueueEntry("a", PriorityDefault, 1)
	b := NewQueueEntry("b", PriorityDefault, 2)
	resumed := NewQueueEntry("c", PriorityResumed, 3)

	if !a.Before(b) {
		t.Error("lower position should dequeue first within a band")
	}
	if !resumed.Before(a) {
		t.Error("higher priority should dequeue first regardless of position")
	}
}

func TestAgentState_RecentObservations(t *testing.T) {
	st := &AgentState{Observations: []string{"a", "b", "c", "d"}}
	recent := st.RecentObservations(2)
	if len(recent) != 2 || recent[0] != "c" || recent[1] != "d" {
		t.Errorf("unexpected recent observations: %v", recent)
	}
	// Returned slice must be a copy.
	recent[0] = "mutated"
	if st.Observations[2] != "c" {
		t.Error("RecentObservations should return a copy")
	}
	if got := st.RecentObservations(10); len(got) != 4 {
		t.Errorf("expected all observations, got %d", len(got))
	}
}

func TestNewCheckpoint_AutomaticFlag(t *testing.T) {
	auto := NewCheckpoint("t1", 5, AgentState{}, "")
	if !auto.IsAutomatic {
		t.Error("empty reason should mark checkpoint automatic")
	}
	manual := NewCheckpoint("t1", 5, AgentState{}, "before risky step")
	if manual.IsAutomatic {
		t.Error("explicit reason should mark checkpoint manual")
	}
}
