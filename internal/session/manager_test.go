package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"slacksum/internal/models"
)

// fakePersister is an in-memory Persister for session tests
type fakePersister struct {
	mu        sync.Mutex
	snapshot  Snapshot
	turns     []models.ConversationTurn
	reminders map[string]models.Reminder
	app       models.AppState

	failSaveTurn     bool
	failSaveReminder bool
	saveTurnCalls    int
}

func newFakePersister() *fakePersister {
	return &fakePersister{
		snapshot:  Snapshot{Turns: map[string][]models.ConversationTurn{}},
		reminders: make(map[string]models.Reminder),
	}
}

func (f *fakePersister) Load(ctx context.Context, userID string) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.snapshot
	return &snap, nil
}

func (f *fakePersister) SaveTurn(ctx context.Context, turn models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveTurnCalls++
	if f.failSaveTurn {
		return errors.New("storage down")
	}
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakePersister) DeleteChannelTurns(ctx context.Context, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.turns[:0]
	for _, t := range f.turns {
		if t.UserID != userID || t.ChannelID != channelID {
			kept = append(kept, t)
		}
	}
	f.turns = kept
	return nil
}

func (f *fakePersister) SaveReminder(ctx context.Context, reminder models.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSaveReminder {
		return errors.New("storage down")
	}
	f.reminders[reminder.ID] = reminder
	return nil
}

func (f *fakePersister) DeleteReminder(ctx context.Context, userID, reminderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reminders[reminderID]; !ok {
		return ErrReminderNotFound
	}
	delete(f.reminders, reminderID)
	return nil
}

func (f *fakePersister) SaveApp(ctx context.Context, app models.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app = app
	return nil
}

func (f *fakePersister) savedTurnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

func TestEnsureWelcomeTurnIsIdempotent(t *testing.T) {
	ctx := context.Background()
	persister := newFakePersister()
	mgr := NewManager(persister)

	first, err := mgr.EnsureWelcomeTurn(ctx, "U1", "C1", "general")
	if err != nil {
		t.Fatalf("first welcome turn failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a welcome turn on first open")
	}
	if first.Role != models.RoleSystem {
		t.Errorf("welcome turn role = %q, want %q", first.Role, models.RoleSystem)
	}
	if !strings.Contains(first.Content, "#general") {
		t.Errorf("welcome turn should mention the channel name, got %q", first.Content)
	}

	second, err := mgr.EnsureWelcomeTurn(ctx, "U1", "C1", "general")
	if err != nil {
		t.Fatalf("second welcome turn failed: %v", err)
	}
	if second != nil {
		t.Error("expected no welcome turn on a non-empty channel")
	}

	turns, err := mgr.Turns(ctx, "U1", "C1")
	if err != nil {
		t.Fatalf("Turns failed: %v", err)
	}
	if len(turns) != 1 {
		t.Errorf("channel has %d turns, want 1", len(turns))
	}
	if persister.savedTurnCount() != 1 {
		t.Errorf("persisted %d turns, want 1", persister.savedTurnCount())
	}
}

func TestAppendTurnPreservesOrder(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	st, err := mgr.Attach(ctx, "U1")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		turn := st.NewTurn("C1", models.RoleUser, content)
		if err := mgr.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn(%q) failed: %v", content, err)
		}
	}

	turns, err := mgr.Turns(ctx, "U1", "C1")
	if err != nil {
		t.Fatalf("Turns failed: %v", err)
	}
	if len(turns) != len(contents) {
		t.Fatalf("got %d turns, want %d", len(turns), len(contents))
	}
	for i, content := range contents {
		if turns[i].Content != content {
			t.Errorf("turn %d content = %q, want %q", i, turns[i].Content, content)
		}
	}
}

func TestAppendTurnFailedPersistLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	persister := newFakePersister()
	mgr := NewManager(persister)

	st, err := mgr.Attach(ctx, "U1")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	persister.failSaveTurn = true
	turn := st.NewTurn("C1", models.RoleUser, "doomed")
	if err := mgr.AppendTurn(ctx, turn); err == nil {
		t.Fatal("expected AppendTurn to fail when persistence fails")
	}

	turns, err := mgr.Turns(ctx, "U1", "C1")
	if err != nil {
		t.Fatalf("Turns failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("memory has %d turns after failed persist, want 0", len(turns))
	}
}

func TestClearChannelOnlyAffectsOneChannel(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	st, err := mgr.Attach(ctx, "U1")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	for _, channelID := range []string{"C1", "C1", "C2"} {
		if err := mgr.AppendTurn(ctx, st.NewTurn(channelID, models.RoleUser, "hi")); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	if err := mgr.ClearChannel(ctx, "U1", "C1"); err != nil {
		t.Fatalf("ClearChannel failed: %v", err)
	}

	cleared, _ := mgr.Turns(ctx, "U1", "C1")
	if len(cleared) != 0 {
		t.Errorf("cleared channel has %d turns, want 0", len(cleared))
	}
	kept, _ := mgr.Turns(ctx, "U1", "C2")
	if len(kept) != 1 {
		t.Errorf("other channel has %d turns, want 1", len(kept))
	}
}

func TestWelcomeTurnReturnsAfterClear(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	if _, err := mgr.EnsureWelcomeTurn(ctx, "U1", "C1", "general"); err != nil {
		t.Fatalf("EnsureWelcomeTurn failed: %v", err)
	}
	if err := mgr.ClearChannel(ctx, "U1", "C1"); err != nil {
		t.Fatalf("ClearChannel failed: %v", err)
	}

	turn, err := mgr.EnsureWelcomeTurn(ctx, "U1", "C1", "general")
	if err != nil {
		t.Fatalf("EnsureWelcomeTurn after clear failed: %v", err)
	}
	if turn == nil {
		t.Error("expected a fresh welcome turn after the channel was cleared")
	}
}

func TestCreateReminderIsManualOrigin(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	reminder, err := mgr.CreateReminder(ctx, "U1", &models.CreateReminderRequest{
		Title:   "Review PR",
		DueDate: "2026-09-01",
		DueTime: "14:00",
	})
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if reminder.Origin != models.ReminderOriginManual {
		t.Errorf("origin = %q, want %q", reminder.Origin, models.ReminderOriginManual)
	}
	if reminder.ID == "" {
		t.Error("reminder should get a generated id")
	}
	if reminder.IsCompleted || reminder.IsRead {
		t.Error("new reminder should start active and unread")
	}
}

func TestUpdateReminderPartial(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	created, err := mgr.CreateReminder(ctx, "U1", &models.CreateReminderRequest{
		Title:       "Standup",
		Description: "daily",
		DueDate:     "2026-09-01",
		DueTime:     "09:00",
	})
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	newTitle := "Standup (moved)"
	updated, err := mgr.UpdateReminder(ctx, "U1", created.ID, &models.UpdateReminderRequest{
		Title: &newTitle,
	})
	if err != nil {
		t.Fatalf("UpdateReminder failed: %v", err)
	}
	if updated.Title != newTitle {
		t.Errorf("title = %q, want %q", updated.Title, newTitle)
	}
	if updated.Description != "daily" {
		t.Errorf("description changed unexpectedly: %q", updated.Description)
	}
	if updated.DueTime != "09:00" {
		t.Errorf("dueTime changed unexpectedly: %q", updated.DueTime)
	}
}

func TestUpdateUnknownReminder(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	read := true
	_, err := mgr.UpdateReminder(ctx, "U1", "missing", &models.UpdateReminderRequest{IsRead: &read})
	if !errors.Is(err, ErrReminderNotFound) {
		t.Errorf("err = %v, want ErrReminderNotFound", err)
	}
}

func TestCompletedReminderLeavesActivePartitions(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	created, err := mgr.CreateReminder(ctx, "U1", &models.CreateReminderRequest{
		Title:   "Ship it",
		DueDate: "2026-09-01",
		DueTime: "17:00",
	})
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	// Complete it while still unread
	if _, err := mgr.MarkReminderComplete(ctx, "U1", created.ID); err != nil {
		t.Fatalf("MarkReminderComplete failed: %v", err)
	}

	parts, err := mgr.Partitions(ctx, "U1")
	if err != nil {
		t.Fatalf("Partitions failed: %v", err)
	}
	if len(parts.ActiveUnread) != 0 || len(parts.ActiveRead) != 0 {
		t.Errorf("completed reminder leaked into active partitions: unread=%d read=%d",
			len(parts.ActiveUnread), len(parts.ActiveRead))
	}
	if len(parts.Completed) != 1 {
		t.Errorf("completed partition has %d entries, want 1", len(parts.Completed))
	}
}

func TestMarkAllActiveRead(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	for _, title := range []string{"a", "b", "c"} {
		if _, err := mgr.CreateReminder(ctx, "U1", &models.CreateReminderRequest{
			Title:   title,
			DueDate: "2026-09-01",
			DueTime: "12:00",
		}); err != nil {
			t.Fatalf("CreateReminder failed: %v", err)
		}
	}

	// Complete one; it must not be counted or touched
	parts, _ := mgr.Partitions(ctx, "U1")
	if _, err := mgr.MarkReminderComplete(ctx, "U1", parts.ActiveUnread[0].ID); err != nil {
		t.Fatalf("MarkReminderComplete failed: %v", err)
	}

	marked, err := mgr.MarkAllActiveRead(ctx, "U1")
	if err != nil {
		t.Fatalf("MarkAllActiveRead failed: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked %d reminders, want 2", marked)
	}

	// Second call is a no-op
	marked, err = mgr.MarkAllActiveRead(ctx, "U1")
	if err != nil {
		t.Fatalf("second MarkAllActiveRead failed: %v", err)
	}
	if marked != 0 {
		t.Errorf("second call marked %d reminders, want 0", marked)
	}

	parts, _ = mgr.Partitions(ctx, "U1")
	if len(parts.ActiveUnread) != 0 {
		t.Errorf("active unread has %d entries after read-all, want 0", len(parts.ActiveUnread))
	}
	if len(parts.ActiveRead) != 2 {
		t.Errorf("active read has %d entries, want 2", len(parts.ActiveRead))
	}
	if parts.Completed[0].IsRead {
		t.Error("read-all must not touch completed reminders' read flags")
	}
}

func TestApplyCommittedSkipsPersister(t *testing.T) {
	ctx := context.Background()
	persister := newFakePersister()
	mgr := NewManager(persister)

	st, err := mgr.Attach(ctx, "U1")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	turn := st.NewTurn("C1", models.RoleAssistant, "summary")
	reminder := &models.Reminder{ID: "r1", UserID: "U1", Title: "auto", Origin: models.ReminderOriginAuto}

	before := persister.saveTurnCalls
	if err := mgr.ApplyCommitted(ctx, turn, reminder); err != nil {
		t.Fatalf("ApplyCommitted failed: %v", err)
	}
	if persister.saveTurnCalls != before {
		t.Error("ApplyCommitted must not write through the persister")
	}

	turns, _ := mgr.Turns(ctx, "U1", "C1")
	if len(turns) != 1 {
		t.Errorf("got %d turns, want 1", len(turns))
	}
	parts, _ := mgr.Partitions(ctx, "U1")
	if len(parts.ActiveUnread) != 1 {
		t.Errorf("auto reminder missing from active unread: %d", len(parts.ActiveUnread))
	}
}

func TestSelectChannelAndDeselect(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakePersister())

	app, err := mgr.SelectChannel(ctx, "U1", "C1", "general")
	if err != nil {
		t.Fatalf("SelectChannel failed: %v", err)
	}
	if app.SelectedChannelID != "C1" || app.SelectedChannelName != "general" {
		t.Errorf("selection = %q/%q, want C1/general", app.SelectedChannelID, app.SelectedChannelName)
	}

	app, err = mgr.SelectChannel(ctx, "U1", "", "")
	if err != nil {
		t.Fatalf("deselect failed: %v", err)
	}
	if app.SelectedChannelID != "" {
		t.Errorf("selection after deselect = %q, want empty", app.SelectedChannelID)
	}
}

func TestAttachRehydratesFromSnapshot(t *testing.T) {
	ctx := context.Background()
	persister := newFakePersister()
	persister.snapshot = Snapshot{
		Turns: map[string][]models.ConversationTurn{
			"C1": {{ID: "t1", UserID: "U1", ChannelID: "C1", Role: models.RoleSystem, Content: "hello"}},
		},
		Reminders: []models.Reminder{{ID: "r1", UserID: "U1", Title: "persisted"}},
		App:       models.AppState{SelectedChannelID: "C1"},
	}
	mgr := NewManager(persister)

	turns, err := mgr.Turns(ctx, "U1", "C1")
	if err != nil {
		t.Fatalf("Turns failed: %v", err)
	}
	if len(turns) != 1 || turns[0].ID != "t1" {
		t.Errorf("rehydrated turns = %+v, want the persisted turn", turns)
	}

	parts, _ := mgr.Partitions(ctx, "U1")
	if len(parts.ActiveUnread) != 1 {
		t.Errorf("rehydrated reminders missing: %d", len(parts.ActiveUnread))
	}

	app, _ := mgr.App(ctx, "U1")
	if app.SelectedChannelID != "C1" {
		t.Errorf("rehydrated selection = %q, want C1", app.SelectedChannelID)
	}
	if app.UserID != "U1" {
		t.Errorf("app state user id = %q, want U1", app.UserID)
	}
}
