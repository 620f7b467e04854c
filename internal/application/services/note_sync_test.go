package services

import (
	"context"
	"errors"
	"testing"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
	"github.com/daymark/core/internal/session"
)

func newNoteFixture(t *testing.T) (*NoteSync, *fakeNoteLocal, *fakeNoteRemote, *session.Source) {
	t.Helper()
	local := &fakeNoteLocal{}
	remote := newFakeNoteRemote()
	src := session.NewSource(nil, logger.NewNop())
	s := NewNoteSync(local, remote, src, logger.NewNop())
	t.Cleanup(s.Close)
	return s, local, remote, src
}

func addNote(t *testing.T, s *NoteSync, title string) entities.Note {
	t.Helper()
	note, err := s.Add(context.Background(), ports.AddNoteRequest{Title: title, Content: "body"})
	if err != nil {
		t.Fatalf("Add(%q): %v", title, err)
	}
	return note
}

func TestNoteSync_GuestAddPrependsNewest(t *testing.T) {
	s, local, _, src := newNoteFixture(t)
	src.Resolve(nil)

	addNote(t, s, "older")
	addNote(t, s, "newer")

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("%d notes, want 2", len(snap))
	}
	if snap[0].Title != "newer" || snap[1].Title != "older" {
		t.Errorf("order = %q, %q, want newest first", snap[0].Title, snap[1].Title)
	}

	if persisted := local.Load(); len(persisted) != 2 || persisted[0].Title != "newer" {
		t.Errorf("persisted blob should keep newest first: %v", persisted)
	}
}

func TestNoteSync_AddSetsBothInstantsAndNormalizesTags(t *testing.T) {
	s, _, _, src := newNoteFixture(t)
	src.Resolve(nil)

	note, err := s.Add(context.Background(), ports.AddNoteRequest{
		Title: "tagged",
		Tags:  []string{"work", "ideas", "work"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if note.CreatedAt == 0 || note.CreatedAt != note.UpdatedAt {
		t.Errorf("instants = %d, %d, want equal and set", note.CreatedAt, note.UpdatedAt)
	}
	if len(note.Tags) != 2 || note.Tags[0] != "work" || note.Tags[1] != "ideas" {
		t.Errorf("tags = %v, want deduplicated [work ideas]", note.Tags)
	}
}

func TestNoteSync_GuestUpdateBumpsUpdatedAt(t *testing.T) {
	s, _, _, src := newNoteFixture(t)
	src.Resolve(nil)

	note := addNote(t, s, "original")

	// Force an observable gap without sleeping.
	s.mu.Lock()
	s.notes[0].CreatedAt = 100
	s.notes[0].UpdatedAt = 100
	s.mu.Unlock()

	title := "renamed"
	if err := s.Update(context.Background(), note.ID, ports.NotePatch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	snap := s.Snapshot()
	if snap[0].Title != "renamed" {
		t.Errorf("title = %q", snap[0].Title)
	}
	if snap[0].CreatedAt != 100 {
		t.Errorf("CreatedAt changed to %d", snap[0].CreatedAt)
	}
	if snap[0].UpdatedAt <= 100 {
		t.Errorf("UpdatedAt = %d, want bumped past 100", snap[0].UpdatedAt)
	}

	if err := s.Update(context.Background(), "missing", ports.NotePatch{Title: &title}); !errors.Is(err, entities.ErrNoteNotFound) {
		t.Errorf("missing id: err = %v", err)
	}
}

func TestNoteSync_TogglePin(t *testing.T) {
	s, _, _, src := newNoteFixture(t)
	src.Resolve(nil)

	note := addNote(t, s, "pin me")

	if err := s.TogglePin(context.Background(), note.ID); err != nil {
		t.Fatalf("TogglePin: %v", err)
	}
	if snap := s.Snapshot(); !snap[0].IsPinned {
		t.Error("note should be pinned")
	}

	if err := s.TogglePin(context.Background(), note.ID); err != nil {
		t.Fatalf("TogglePin: %v", err)
	}
	if snap := s.Snapshot(); snap[0].IsPinned {
		t.Error("note should be unpinned")
	}

	if err := s.TogglePin(context.Background(), "missing"); !errors.Is(err, entities.ErrNoteNotFound) {
		t.Errorf("missing id: err = %v", err)
	}
}

func TestNoteSync_GuestDelete(t *testing.T) {
	s, local, _, src := newNoteFixture(t)
	src.Resolve(nil)

	keep := addNote(t, s, "keep")
	drop := addNote(t, s, "drop")

	if err := s.Delete(context.Background(), drop.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != keep.ID {
		t.Fatalf("snapshot after delete = %v", snap)
	}
	if persisted := local.Load(); len(persisted) != 1 {
		t.Errorf("persisted %d notes, want 1", len(persisted))
	}

	if err := s.Delete(context.Background(), drop.ID); !errors.Is(err, entities.ErrNoteNotFound) {
		t.Errorf("double delete: err = %v", err)
	}
}

func TestNoteSync_SessionSwitchIsolatesCollections(t *testing.T) {
	s, local, remote, src := newNoteFixture(t)
	src.Resolve(nil)
	guest := addNote(t, s, "guest note")

	remote.seed("u1", entities.Note{ID: "n1", Title: "remote note", UpdatedAt: 5})
	src.SignIn("u1", "")

	if s.Mode() != ModeRemote {
		t.Fatalf("mode = %v, want remote", s.Mode())
	}
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != "n1" {
		t.Fatalf("remote snapshot = %v", snap)
	}

	src.SignOut()

	snap = s.Snapshot()
	if len(snap) != 1 || snap[0].ID != guest.ID {
		t.Fatalf("guest snapshot after sign-out = %v", snap)
	}
	if persisted := local.Load(); len(persisted) != 1 || persisted[0].ID != guest.ID {
		t.Error("guest blob changed across session switches")
	}
}

func TestNoteSync_RemoteUpdateOrdersByRecency(t *testing.T) {
	s, _, remote, src := newNoteFixture(t)
	remote.seed("u1",
		entities.Note{ID: "n1", Title: "first", UpdatedAt: 10},
		entities.Note{ID: "n2", Title: "second", UpdatedAt: 20},
	)
	src.Resolve(&session.Session{UID: "u1"})

	if snap := s.Snapshot(); snap[0].ID != "n2" {
		t.Fatalf("initial snapshot head = %s, want n2", snap[0].ID)
	}

	title := "first, revised"
	if err := s.Update(context.Background(), "n1", ports.NotePatch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// The touched note surfaces to the head of the snapshot.
	snap := s.Snapshot()
	if snap[0].ID != "n1" || snap[0].Title != "first, revised" {
		t.Errorf("head after update = %+v", snap[0])
	}
}

func TestNoteSync_WatchNotifiedOnChange(t *testing.T) {
	s, _, _, src := newNoteFixture(t)
	src.Resolve(nil)

	var lengths []int
	stop := s.Watch(func(notes []entities.Note) {
		lengths = append(lengths, len(notes))
	})
	defer stop()

	addNote(t, s, "a")
	addNote(t, s, "b")

	if len(lengths) < 2 || lengths[len(lengths)-1] != 2 {
		t.Errorf("watcher lengths = %v", lengths)
	}
}
