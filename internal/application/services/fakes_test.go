package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/ordering"
	"github.com/daymark/core/internal/ports"
)

type fakeTaskLocal struct {
	mu      sync.Mutex
	tasks   []entities.Task
	saves   int
	saveErr error
}

func (f *fakeTaskLocal) Load() []entities.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Task(nil), f.tasks...)
}

func (f *fakeTaskLocal) SaveAll(tasks []entities.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.tasks = append([]entities.Task(nil), tasks...)
	f.saves++
	return nil
}

type fakeNoteLocal struct {
	mu    sync.Mutex
	notes []entities.Note
}

func (f *fakeNoteLocal) Load() []entities.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Note(nil), f.notes...)
}

func (f *fakeNoteLocal) SaveAll(notes []entities.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append([]entities.Note(nil), notes...)
	return nil
}

type taskSub struct {
	owner   string
	deliver func([]entities.Task)
}

// fakeTaskRemote mimics the remote adapter: per-owner collections and
// synchronous snapshot delivery after every change.
type fakeTaskRemote struct {
	mu        sync.Mutex
	nextID    int
	tasks     map[string]map[string]entities.Task
	subs      map[int]taskSub
	nextSub   int
	subErr    error
	addErr    error
	updateErr map[string]error
	deleteErr map[string]error
}

func newFakeTaskRemote() *fakeTaskRemote {
	return &fakeTaskRemote{
		tasks:     make(map[string]map[string]entities.Task),
		subs:      make(map[int]taskSub),
		updateErr: make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (f *fakeTaskRemote) seed(owner string, tasks ...entities.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tasks[owner] == nil {
		f.tasks[owner] = make(map[string]entities.Task)
	}
	for _, t := range tasks {
		f.tasks[owner][t.ID] = t
	}
}

func (f *fakeTaskRemote) snapshot(owner string) []entities.Task {
	out := make([]entities.Task, 0, len(f.tasks[owner]))
	for _, t := range f.tasks[owner] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return ordering.SortByOrder(out)
}

func (f *fakeTaskRemote) push(owner string) {
	snap := f.snapshot(owner)
	for _, sub := range f.subs {
		if sub.owner == owner {
			sub.deliver(snap)
		}
	}
}

func (f *fakeTaskRemote) Subscribe(ctx context.Context, ownerID string, fn func([]entities.Task)) (ports.UnsubscribeFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = taskSub{owner: ownerID, deliver: fn}
	fn(f.snapshot(ownerID))
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}, nil
}

func (f *fakeTaskRemote) Add(ctx context.Context, ownerID string, task entities.Task) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.nextID++
	task.ID = fmt.Sprintf("r%d", f.nextID)
	if f.tasks[ownerID] == nil {
		f.tasks[ownerID] = make(map[string]entities.Task)
	}
	f.tasks[ownerID][task.ID] = task
	f.push(ownerID)
	return task.ID, nil
}

func (f *fakeTaskRemote) Update(ctx context.Context, ownerID, id string, patch ports.TaskPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	task, ok := f.tasks[ownerID][id]
	if !ok {
		return entities.ErrTaskNotFound
	}
	patch.ApplyTo(&task)
	f.tasks[ownerID][id] = task
	f.push(ownerID)
	return nil
}

func (f *fakeTaskRemote) Delete(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := f.tasks[ownerID][id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(f.tasks[ownerID], id)
	f.push(ownerID)
	return nil
}

func (f *fakeTaskRemote) BulkDelete(ctx context.Context, ownerID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	failed := make(map[string]error)
	for _, id := range ids {
		if err := f.deleteErr[id]; err != nil {
			failed[id] = err
			continue
		}
		if _, ok := f.tasks[ownerID][id]; !ok {
			failed[id] = entities.ErrTaskNotFound
			continue
		}
		delete(f.tasks[ownerID], id)
	}
	f.push(ownerID)
	if len(failed) > 0 {
		return &ports.BulkError{Op: "bulk delete", Failed: failed}
	}
	return nil
}

type noteSub struct {
	owner   string
	deliver func([]entities.Note)
}

type fakeNoteRemote struct {
	mu        sync.Mutex
	nextID    int
	notes     map[string]map[string]entities.Note
	subs      map[int]noteSub
	nextSub   int
	addErr    error
	updateErr map[string]error
}

func newFakeNoteRemote() *fakeNoteRemote {
	return &fakeNoteRemote{
		notes:     make(map[string]map[string]entities.Note),
		subs:      make(map[int]noteSub),
		updateErr: make(map[string]error),
	}
}

func (f *fakeNoteRemote) seed(owner string, notes ...entities.Note) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notes[owner] == nil {
		f.notes[owner] = make(map[string]entities.Note)
	}
	for _, n := range notes {
		f.notes[owner][n.ID] = n
	}
}

func (f *fakeNoteRemote) snapshot(owner string) []entities.Note {
	out := make([]entities.Note, 0, len(f.notes[owner]))
	for _, n := range f.notes[owner] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeNoteRemote) push(owner string) {
	snap := f.snapshot(owner)
	for _, sub := range f.subs {
		if sub.owner == owner {
			sub.deliver(snap)
		}
	}
}

func (f *fakeNoteRemote) Subscribe(ctx context.Context, ownerID string, fn func([]entities.Note)) (ports.UnsubscribeFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = noteSub{owner: ownerID, deliver: fn}
	fn(f.snapshot(ownerID))
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}, nil
}

func (f *fakeNoteRemote) Add(ctx context.Context, ownerID string, note entities.Note) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	f.nextID++
	note.ID = fmt.Sprintf("n%d", f.nextID)
	if f.notes[ownerID] == nil {
		f.notes[ownerID] = make(map[string]entities.Note)
	}
	f.notes[ownerID][note.ID] = note
	f.push(ownerID)
	return note.ID, nil
}

func (f *fakeNoteRemote) Update(ctx context.Context, ownerID, id string, patch ports.NotePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[id]; err != nil {
		return err
	}
	note, ok := f.notes[ownerID][id]
	if !ok {
		return entities.ErrNoteNotFound
	}
	patch.ApplyTo(&note)
	note.Touch(entities.NowMillis())
	f.notes[ownerID][id] = note
	f.push(ownerID)
	return nil
}

func (f *fakeNoteRemote) Delete(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[ownerID][id]; !ok {
		return entities.ErrNoteNotFound
	}
	delete(f.notes[ownerID], id)
	f.push(ownerID)
	return nil
}
