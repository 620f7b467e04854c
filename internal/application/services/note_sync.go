package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
	"github.com/daymark/core/internal/session"
)

// NoteSync is the notes counterpart of TaskSync: same dual-mode contract,
// no ordering involved. Guest-mode adds prepend so the newest note leads,
// remote snapshots arrive sorted most-recently-updated first.
type NoteSync struct {
	local  ports.NoteLocalStore
	remote ports.NoteRemoteStore
	source *session.Source
	logger *logger.Logger

	mu        sync.Mutex
	notes     []entities.Note
	loading   bool
	mode      StorageMode
	owner     string
	unsub     ports.UnsubscribeFunc
	watchers  map[int]func([]entities.Note)
	nextWatch int

	detach func()
}

// NewNoteSync creates the facade and attaches it to the session source.
func NewNoteSync(local ports.NoteLocalStore, remote ports.NoteRemoteStore, source *session.Source, log *logger.Logger) *NoteSync {
	s := &NoteSync{
		local:    local,
		remote:   remote,
		source:   source,
		logger:   log.WithComponent("note_sync"),
		loading:  true,
		watchers: make(map[int]func([]entities.Note)),
	}

	s.detach = source.OnChange(s.onSession)
	if !source.Loading() {
		s.onSession(source.Current())
	}
	return s
}

// Close detaches from the session source and tears down any subscription.
func (s *NoteSync) Close() {
	if s.detach != nil {
		s.detach()
	}
	s.teardownSubscription()
}

// Snapshot returns the current collection.
func (s *NoteSync) Snapshot() []entities.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Loading reports whether the collection is still being resolved.
func (s *NoteSync) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Mode returns the currently bound storage mode.
func (s *NoteSync) Mode() StorageMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Watch registers a snapshot consumer invoked after every collection
// change. The returned function removes it.
func (s *NoteSync) Watch(fn func([]entities.Note)) func() {
	s.mu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Add creates a note. Both instants are set to the creation instant; tags
// are de-duplicated.
func (s *NoteSync) Add(ctx context.Context, req ports.AddNoteRequest) (entities.Note, error) {
	now := entities.NowMillis()
	note := entities.Note{
		Title:     req.Title,
		Content:   req.Content,
		Tags:      entities.NormalizeTags(req.Tags),
		Color:     req.Color,
		IsPinned:  req.IsPinned,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		id, err := s.remote.Add(ctx, owner, note)
		if err != nil {
			return entities.Note{}, fmt.Errorf("failed to add note: %w", err)
		}
		note.ID = id
		return note, nil
	}

	note.ID = entities.NewLocalID()
	s.mu.Lock()
	next := append([]entities.Note{note}, s.snapshotLocked()...)
	s.mu.Unlock()
	if err := s.commitLocal(next); err != nil {
		return entities.Note{}, err
	}
	return note, nil
}

// Update applies a partial patch and bumps the note's update instant.
func (s *NoteSync) Update(ctx context.Context, id string, patch ports.NotePatch) error {
	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		return s.remote.Update(ctx, owner, id, patch)
	}

	s.mu.Lock()
	next := s.snapshotLocked()
	s.mu.Unlock()
	found := false
	for i := range next {
		if next[i].ID == id {
			patch.ApplyTo(&next[i])
			next[i].Touch(entities.NowMillis())
			found = true
			break
		}
	}
	if !found {
		return entities.ErrNoteNotFound
	}
	return s.commitLocal(next)
}

// TogglePin flips a note's pinned flag.
func (s *NoteSync) TogglePin(ctx context.Context, id string) error {
	s.mu.Lock()
	var pinned *bool
	for i := range s.notes {
		if s.notes[i].ID == id {
			v := !s.notes[i].IsPinned
			pinned = &v
			break
		}
	}
	s.mu.Unlock()

	if pinned == nil {
		return entities.ErrNoteNotFound
	}
	return s.Update(ctx, id, ports.NotePatch{IsPinned: pinned})
}

// Delete removes one note.
func (s *NoteSync) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		return s.remote.Delete(ctx, owner, id)
	}

	s.mu.Lock()
	next := s.snapshotLocked()
	s.mu.Unlock()
	kept := next[:0]
	found := false
	for _, n := range next {
		if n.ID == id {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return entities.ErrNoteNotFound
	}
	return s.commitLocal(kept)
}

func (s *NoteSync) onSession(sess *session.Session) {
	s.teardownSubscription()

	if sess == nil {
		notes := s.local.Load()
		s.mu.Lock()
		s.mode = ModeLocal
		s.owner = ""
		s.notes = notes
		s.loading = false
		s.mu.Unlock()
		s.notifyWatchers()
		s.logger.Debugw("Bound guest store", "notes", len(notes))
		return
	}

	s.mu.Lock()
	s.mode = ModeRemote
	s.owner = sess.UID
	s.notes = nil
	s.loading = true
	s.mu.Unlock()
	s.notifyWatchers()

	unsub, err := s.remote.Subscribe(context.Background(), sess.UID, s.onSnapshot)
	if err != nil {
		s.logger.Errorw("Failed to open note subscription", "uid", sess.UID, "error", err)
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.unsub = unsub
	s.mu.Unlock()
	s.logger.Debugw("Bound remote store", "uid", sess.UID)
}

func (s *NoteSync) onSnapshot(notes []entities.Note) {
	s.mu.Lock()
	if s.mode != ModeRemote {
		s.mu.Unlock()
		return
	}
	s.notes = notes
	s.loading = false
	s.mu.Unlock()
	s.notifyWatchers()
}

func (s *NoteSync) teardownSubscription() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *NoteSync) commitLocal(next []entities.Note) error {
	s.mu.Lock()
	s.notes = next
	s.mu.Unlock()
	s.notifyWatchers()

	if err := s.local.SaveAll(next); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

func (s *NoteSync) snapshotLocked() []entities.Note {
	out := make([]entities.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

func (s *NoteSync) notifyWatchers() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	fns := make([]func([]entities.Note), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}
