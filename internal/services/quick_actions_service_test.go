package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeQuickActionsFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestQuickActionsLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick_actions.json")
	writeQuickActionsFile(t, path, `[
		{"label":"Standup digest","message":"Summarize the standup thread"},
		{"label":"Blockers","message":"List any blockers mentioned today"}
	]`)

	svc := NewQuickActionsService(path)
	actions := svc.Actions()
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(actions))
	}
	if actions[0].Label != "Standup digest" || actions[1].Message != "List any blockers mentioned today" {
		t.Errorf("actions = %+v", actions)
	}
}

func TestQuickActionsMissingFileFallsBack(t *testing.T) {
	svc := NewQuickActionsService(filepath.Join(t.TempDir(), "nope.json"))
	if len(svc.Actions()) == 0 {
		t.Fatal("missing file should fall back to the built-in defaults")
	}
}

func TestQuickActionsInvalidJSONFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick_actions.json")
	writeQuickActionsFile(t, path, `{not json`)

	svc := NewQuickActionsService(path)
	if len(svc.Actions()) == 0 {
		t.Fatal("invalid file should fall back to the built-in defaults")
	}
}

func TestQuickActionsHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quick_actions.json")
	writeQuickActionsFile(t, path, `[{"label":"One","message":"first"}]`)

	svc := NewQuickActionsService(path)
	if err := svc.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer svc.Close()

	writeQuickActionsFile(t, path, `[
		{"label":"One","message":"first"},
		{"label":"Two","message":"second"}
	]`)

	deadline := time.After(3 * time.Second)
	for {
		if len(svc.Actions()) == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("reload never happened, actions = %+v", svc.Actions())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestQuickActionsReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick_actions.json")
	writeQuickActionsFile(t, path, `[{"label":"One","message":"first"}]`)

	svc := NewQuickActionsService(path)
	actions := svc.Actions()
	actions[0].Label = "mutated"

	if svc.Actions()[0].Label != "One" {
		t.Error("Actions must return a copy, not the internal slice")
	}
}
