package session

import (
	"testing"
	"time"
)

func TestStartHeartbeatEnd(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s, err := store.Start("agent-1", "P1.M1.E1.T001", now)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.ID == "" || s.Agent != "agent-1" {
		t.Errorf("session = %+v", s)
	}

	later := now.Add(10 * time.Minute)
	h, err := store.Heartbeat("agent-1", "halfway", later)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if !h.LastHeartbeat.Equal(later) || h.Progress != "halfway" {
		t.Errorf("heartbeat = %+v", h)
	}

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d", len(sessions))
	}

	removed, err := store.End("agent-1")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	sessions, _ = store.List()
	if len(sessions) != 0 {
		t.Errorf("sessions after end = %d", len(sessions))
	}
}

func TestHeartbeatWithoutSessionFails(t *testing.T) {
	store := NewStore(t.TempDir())
	if _, err := store.Heartbeat("nobody", "", time.Now()); err == nil {
		t.Fatal("expected error")
	}
}

func TestStaleness(t *testing.T) {
	now := time.Now()
	s := Session{LastHeartbeat: now.Add(-45 * time.Minute)}
	if !s.Stale(now, 30*time.Minute) {
		t.Error("45m old heartbeat should be stale at 30m threshold")
	}
	if s.Stale(now, time.Hour) {
		t.Error("45m old heartbeat should not be stale at 1h threshold")
	}
}

func TestContextPointerLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx, err := store.Context()
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if ctx.TaskID != "" {
		t.Errorf("fresh context = %+v", ctx)
	}
	if err := store.SetContext("P1.M1.E1.T001", "resuming", time.Now()); err != nil {
		t.Fatalf("SetContext: %v", err)
	}
	ctx, err = store.Context()
	if err != nil {
		t.Fatal(err)
	}
	if ctx.TaskID != "P1.M1.E1.T001" || ctx.Note != "resuming" {
		t.Errorf("context = %+v", ctx)
	}
	if err := store.ClearContext(); err != nil {
		t.Fatalf("ClearContext: %v", err)
	}
	if err := store.ClearContext(); err != nil {
		t.Fatalf("ClearContext should be idempotent: %v", err)
	}
	ctx, _ = store.Context()
	if ctx.TaskID != "" {
		t.Errorf("context after clear = %+v", ctx)
	}
}

func TestMultipleAgents(t *testing.T) {
	store := NewStore(t.TempDir())
	now := time.Now()
	if _, err := store.Start("a", "", now); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Start("b", "", now); err != nil {
		t.Fatal(err)
	}
	removed, err := store.End("a")
	if err != nil || removed != 1 {
		t.Fatalf("End(a) = %d, %v", removed, err)
	}
	sessions, _ := store.List()
	if len(sessions) != 1 || sessions[0].Agent != "b" {
		t.Errorf("sessions = %+v", sessions)
	}
}
