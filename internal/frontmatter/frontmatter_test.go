package frontmatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/untoldecay/backlog/internal/types"
)

const sampleTask = `---
id: P1.M1.E1.T001
title: Wire the loader
status: pending
estimate_hours: 1.5
complexity: medium
priority: high
depends_on: []
tags:
  - core
custom_key: survives
---
## Requirements

Body text stays **byte exact**.
`

func TestParseTask(t *testing.T) {
	h, body, err := ParseTask([]byte(sampleTask))
	if err != nil {
		t.Fatalf("ParseTask error = %v", err)
	}
	if h.ID != "P1.M1.E1.T001" {
		t.Errorf("id = %q", h.ID)
	}
	if h.Status != types.StatusPending {
		t.Errorf("status = %q", h.Status)
	}
	if h.EstimateHours != 1.5 {
		t.Errorf("estimate_hours = %v", h.EstimateHours)
	}
	if len(h.Tags) != 1 || h.Tags[0] != "core" {
		t.Errorf("tags = %v", h.Tags)
	}
	if got := h.Extra["custom_key"]; got != "survives" {
		t.Errorf("extra custom_key = %v", got)
	}
	if !strings.Contains(body, "byte exact") {
		t.Errorf("body lost: %q", body)
	}
}

func TestParseTaskMissingEnvelope(t *testing.T) {
	_, _, err := ParseTask([]byte("no envelope here\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if types.CodeOf(err) != types.CodeMalformedFrontmatter {
		t.Errorf("code = %v", types.CodeOf(err))
	}
	_, _, err = ParseTask([]byte("---\nid: X\nnever closed\n"))
	if types.CodeOf(err) != types.CodeMalformedFrontmatter {
		t.Errorf("unterminated code = %v", types.CodeOf(err))
	}
}

func TestParseTaskTypeMismatch(t *testing.T) {
	_, _, err := ParseTask([]byte("---\nid: T001\nestimate_hours: lots\n---\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if types.CodeOf(err) != types.CodeTypeMismatch {
		t.Errorf("code = %v", types.CodeOf(err))
	}
}

func TestRenderRoundTripPreservesBodyAndExtras(t *testing.T) {
	h, body, err := ParseTask([]byte(sampleTask))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := RenderTask(h, body)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	h2, body2, err := ParseTask(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if body2 != body {
		t.Errorf("body changed:\n%q\n%q", body, body2)
	}
	if h2.ID != h.ID || h2.Title != h.Title || h2.EstimateHours != h.EstimateHours {
		t.Errorf("header changed: %+v vs %+v", h, h2)
	}
	if h2.Extra["custom_key"] != "survives" {
		t.Errorf("extra key dropped: %v", h2.Extra)
	}
}

func TestRenderTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	h := TaskHeader{ID: "B001", Title: "Bug", Status: types.StatusInProgress, ClaimedBy: "agent-1", ClaimedAt: &at, StartedAt: &at}
	out, err := RenderTask(h, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), "claimed_at: \"2026-03-01T09:30:00Z\"") &&
		!strings.Contains(string(out), "claimed_at: 2026-03-01T09:30:00Z") {
		t.Errorf("timestamp missing:\n%s", out)
	}
	h2, _, err := ParseTask(out)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if h2.ClaimedAt == nil || !h2.ClaimedAt.Equal(at) {
		t.Errorf("claimed_at = %v", h2.ClaimedAt)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.yaml")
	if err := WriteFileAtomic(path, []byte("project: one\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("project: two\n")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "project: two\n" {
		t.Errorf("content = %q", raw)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestIndexRoundTripKeepsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.yaml")
	src := "project: demo\nphases:\n  - id: P1\n    name: One\n    path: 01-one\n    custom: kept\ncritical_path: []\nnext_available: \"\"\nfuture_field: 7\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	var idx RootIndex
	if err := ReadYAML(path, &idx); err != nil {
		t.Fatalf("read: %v", err)
	}
	if idx.Extra["future_field"] != 7 {
		t.Errorf("root extra = %v", idx.Extra)
	}
	if idx.Phases[0].Extra["custom"] != "kept" {
		t.Errorf("entry extra = %v", idx.Phases[0].Extra)
	}
	if err := WriteYAML(path, idx); err != nil {
		t.Fatalf("write: %v", err)
	}
	var again RootIndex
	if err := ReadYAML(path, &again); err != nil {
		t.Fatalf("reread: %v", err)
	}
	if again.Extra["future_field"] != 7 || again.Phases[0].Extra["custom"] != "kept" {
		t.Errorf("unknown keys dropped on rewrite: %+v", again)
	}
}
