package services

import (
	"context"
	"testing"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
)

func newHubFixture(t *testing.T) (*Hub, *fakeTaskLocal, *fakeTaskRemote) {
	t.Helper()
	taskLocal := &fakeTaskLocal{}
	noteLocal := &fakeNoteLocal{}
	taskRemote := newFakeTaskRemote()
	noteRemote := newFakeNoteRemote()
	h := NewHub(taskLocal, noteLocal, taskRemote, noteRemote, nil, logger.NewNop())
	t.Cleanup(h.Close)
	return h, taskLocal, taskRemote
}

func TestHub_GuestWorkspaceIsShared(t *testing.T) {
	h, _, _ := newHubFixture(t)

	first := h.Guest()
	second := h.Guest()
	if first != second {
		t.Fatal("guest workspace should be cached")
	}

	if first.Tasks.Mode() != ModeLocal {
		t.Errorf("guest mode = %v, want local", first.Tasks.Mode())
	}
	if first.Tasks.Loading() {
		t.Error("guest workspace should be resolved")
	}
}

func TestHub_UserWorkspacesAreIsolated(t *testing.T) {
	h, _, taskRemote := newHubFixture(t)
	taskRemote.seed("u1", entities.Task{ID: "r1", Text: "mine", Priority: entities.PriorityLow})
	taskRemote.seed("u2", entities.Task{ID: "r2", Text: "theirs", Priority: entities.PriorityLow})

	wsOne := h.ForUser("u1", "u1@example.com")
	wsTwo := h.ForUser("u2", "u2@example.com")

	if wsOne == wsTwo {
		t.Fatal("distinct users must get distinct workspaces")
	}
	if h.ForUser("u1", "u1@example.com") != wsOne {
		t.Fatal("workspace should be cached per user")
	}

	one := wsOne.Tasks.Snapshot()
	if len(one) != 1 || one[0].ID != "r1" {
		t.Errorf("u1 snapshot = %v", one)
	}
	two := wsTwo.Tasks.Snapshot()
	if len(two) != 1 || two[0].ID != "r2" {
		t.Errorf("u2 snapshot = %v", two)
	}
}

func TestHub_GuestAndUserDataStaySeparate(t *testing.T) {
	h, taskLocal, _ := newHubFixture(t)

	guest := h.Guest()
	if _, err := guest.Tasks.Add(context.Background(), ports.AddTaskRequest{Text: "guest task", Priority: entities.PriorityLow}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	user := h.ForUser("u1", "")
	if _, err := user.Tasks.Add(context.Background(), ports.AddTaskRequest{Text: "user task", Priority: entities.PriorityLow}); err != nil {
		t.Fatalf("user add: %v", err)
	}

	if snap := guest.Tasks.Snapshot(); len(snap) != 1 || snap[0].Text != "guest task" {
		t.Errorf("guest snapshot = %v", snap)
	}
	if persisted := taskLocal.Load(); len(persisted) != 1 || persisted[0].Text != "guest task" {
		t.Errorf("guest blob = %v", persisted)
	}
}

func TestHub_EvictDropsWorkspace(t *testing.T) {
	h, _, taskRemote := newHubFixture(t)
	taskRemote.seed("u1", entities.Task{ID: "r1", Text: "x", Priority: entities.PriorityLow})

	ws := h.ForUser("u1", "")
	h.Evict("u1")

	if h.ForUser("u1", "") == ws {
		t.Fatal("evicted workspace should not be reused")
	}

	// Evicting an unknown user is a no-op.
	h.Evict("nobody")
}
