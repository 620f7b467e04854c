package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ordering"
	"github.com/daymark/core/internal/ports"
	"github.com/daymark/core/internal/session"
)

// StorageMode identifies which adapter a facade is bound to.
type StorageMode int

const (
	ModeLocal StorageMode = iota
	ModeRemote
)

func (m StorageMode) String() string {
	if m == ModeRemote {
		return "remote"
	}
	return "local"
}

// TaskSync is the single entry point for task operations. It follows the
// session source: no session binds the guest blob store, an authenticated
// session binds a live remote subscription. Callers see one entity shape
// and never branch on storage mode.
type TaskSync struct {
	local  ports.TaskLocalStore
	remote ports.TaskRemoteStore
	source *session.Source
	logger *logger.Logger

	mu        sync.Mutex
	tasks     []entities.Task
	loading   bool
	mode      StorageMode
	owner     string
	unsub     ports.UnsubscribeFunc
	watchers  map[int]func([]entities.Task)
	nextWatch int

	detach func()
}

// NewTaskSync creates the facade and attaches it to the session source. If
// the source has already resolved, the matching adapter is bound
// immediately; otherwise the facade reports loading until resolution.
func NewTaskSync(local ports.TaskLocalStore, remote ports.TaskRemoteStore, source *session.Source, log *logger.Logger) *TaskSync {
	s := &TaskSync{
		local:    local,
		remote:   remote,
		source:   source,
		logger:   log.WithComponent("task_sync"),
		loading:  true,
		watchers: make(map[int]func([]entities.Task)),
	}

	s.detach = source.OnChange(s.onSession)
	if !source.Loading() {
		s.onSession(source.Current())
	}
	return s
}

// Close detaches from the session source and tears down any subscription.
func (s *TaskSync) Close() {
	if s.detach != nil {
		s.detach()
	}
	s.teardownSubscription()
}

// Snapshot returns the current collection, sorted by order.
func (s *TaskSync) Snapshot() []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Loading reports whether the collection is still being resolved: the
// session itself, or the first remote snapshot after a sign-in.
func (s *TaskSync) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Mode returns the currently bound storage mode.
func (s *TaskSync) Mode() StorageMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Watch registers a snapshot consumer invoked after every collection
// change. The returned function removes it.
func (s *TaskSync) Watch(fn func([]entities.Task)) func() {
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

// Add creates a task. Its order is one past the collection's current
// maximum (zero when empty); id and creation instant are assigned here for
// guest mode and by the remote store otherwise.
func (s *TaskSync) Add(ctx context.Context, req ports.AddTaskRequest) (entities.Task, error) {
	task := entities.Task{
		Text:      req.Text,
		Priority:  req.Priority,
		DueDate:   req.DueDate,
		CreatedAt: entities.NowMillis(),
	}
	if err := task.Validate(); err != nil {
		return entities.Task{}, err
	}

	s.mu.Lock()
	task.Order = ordering.NextOrder(s.tasks)
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		id, err := s.remote.Add(ctx, owner, task)
		if err != nil {
			return entities.Task{}, fmt.Errorf("failed to add task: %w", err)
		}
		task.ID = id
		// The subscription delivers the authoritative snapshot.
		return task, nil
	}

	task.ID = entities.NewLocalID()
	s.mu.Lock()
	next := append(s.snapshotLocked(), task)
	s.mu.Unlock()
	if err := s.commitLocal(next); err != nil {
		return entities.Task{}, err
	}
	return task, nil
}

// Update applies a partial patch to one task.
func (s *TaskSync) Update(ctx context.Context, id string, patch ports.TaskPatch) error {
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
			found = true
			break
		}
	}
	if !found {
		return entities.ErrTaskNotFound
	}
	return s.commitLocal(next)
}

// Toggle flips a task's completed flag.
func (s *TaskSync) Toggle(ctx context.Context, id string) error {
	s.mu.Lock()
	var current *entities.Task
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			current = &s.tasks[i]
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return entities.ErrTaskNotFound
	}
	completed := !current.Completed
	s.mu.Unlock()

	return s.Update(ctx, id, ports.TaskPatch{Completed: &completed})
}

// Delete removes one task. Remaining order values are intentionally not
// renormalized; only Reorder assigns dense indices, and sorting is by
// relative order so the gaps are invisible to consumers.
func (s *TaskSync) Delete(ctx context.Context, id string) error {
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
	for _, t := range next {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	if !found {
		return entities.ErrTaskNotFound
	}
	return s.commitLocal(kept)
}

// BulkComplete marks every selected task completed. Remote attempts run
// concurrently and independently; on partial failure the error reports the
// ids that failed and the successes stay applied.
func (s *TaskSync) BulkComplete(ctx context.Context, ids []string) error {
	completed := true
	return s.bulkPatch(ctx, ids, ports.TaskPatch{Completed: &completed}, "bulk complete")
}

// BulkDelete deletes every selected task with the same partial-failure
// semantics as BulkComplete.
func (s *TaskSync) BulkDelete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		return s.forEachID(ctx, ids, "bulk delete", func(ctx context.Context, id string) error {
			return s.remote.Delete(ctx, owner, id)
		})
	}

	selected := idSet(ids)
	s.mu.Lock()
	next := s.snapshotLocked()
	s.mu.Unlock()
	kept := next[:0]
	for _, t := range next {
		if _, ok := selected[t.ID]; ok {
			continue
		}
		kept = append(kept, t)
	}
	return s.commitLocal(kept)
}

// ClearCompleted deletes every completed task.
func (s *TaskSync) ClearCompleted(ctx context.Context) error {
	s.mu.Lock()
	mode, owner := s.mode, s.owner
	var ids []string
	for _, t := range s.tasks {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	s.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	if mode == ModeRemote {
		return s.remote.BulkDelete(ctx, owner, ids)
	}
	return s.BulkDelete(ctx, ids)
}

// Reorder replaces the collection order with the given id sequence. The
// in-memory snapshot is updated before persistence resolves so the view
// reflects the drop immediately; a persistence failure is reported but the
// optimistic state is not rolled back, the next snapshot converges.
func (s *TaskSync) Reorder(ctx context.Context, orderedIDs []string) error {
	s.mu.Lock()
	byID := make(map[string]entities.Task, len(s.tasks))
	for _, t := range s.tasks {
		byID[t.ID] = t
	}
	s.mu.Unlock()

	if len(orderedIDs) != len(byID) {
		return fmt.Errorf("reorder expects all %d task ids, got %d", len(byID), len(orderedIDs))
	}
	next := make([]entities.Task, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		t, ok := byID[id]
		if !ok {
			return fmt.Errorf("reorder: %w: %s", entities.ErrTaskNotFound, id)
		}
		next = append(next, t)
	}

	updates := ordering.Reindex(next)
	applied := ordering.Apply(next, updates)

	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.tasks = applied
	s.mu.Unlock()
	s.notifyWatchers()

	if mode == ModeLocal {
		if err := s.local.SaveAll(applied); err != nil {
			return fmt.Errorf("failed to persist reorder: %w", err)
		}
		return nil
	}

	return s.forEachUpdate(ctx, owner, updates)
}

func (s *TaskSync) forEachUpdate(ctx context.Context, owner string, updates []ordering.OrderUpdate) error {
	failed := make([]error, len(updates))
	var g errgroup.Group
	for i, u := range updates {
		i, u := i, u
		g.Go(func() error {
			order := u.Order
			failed[i] = s.remote.Update(ctx, owner, u.ID, ports.TaskPatch{Order: &order})
			return nil
		})
	}
	g.Wait()

	errs := make(map[string]error)
	for i, u := range updates {
		if failed[i] != nil {
			errs[u.ID] = failed[i]
		}
	}
	if len(errs) > 0 {
		return &ports.BulkError{Op: "reorder", Failed: errs}
	}
	return nil
}

func (s *TaskSync) bulkPatch(ctx context.Context, ids []string, patch ports.TaskPatch, op string) error {
	s.mu.Lock()
	mode, owner := s.mode, s.owner
	s.mu.Unlock()

	if mode == ModeRemote {
		return s.forEachID(ctx, ids, op, func(ctx context.Context, id string) error {
			return s.remote.Update(ctx, owner, id, patch)
		})
	}

	selected := idSet(ids)
	s.mu.Lock()
	next := s.snapshotLocked()
	s.mu.Unlock()
	for i := range next {
		if _, ok := selected[next[i].ID]; ok {
			patch.ApplyTo(&next[i])
		}
	}
	return s.commitLocal(next)
}

// forEachID fires one attempt per id concurrently and waits for all of
// them; failures are collected per id, never short-circuited.
func (s *TaskSync) forEachID(ctx context.Context, ids []string, op string, attempt func(context.Context, string) error) error {
	results := make([]error, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = attempt(ctx, id)
			return nil
		})
	}
	g.Wait()

	failed := make(map[string]error)
	for i, id := range ids {
		if results[i] != nil {
			failed[id] = results[i]
		}
	}
	if len(failed) > 0 {
		return &ports.BulkError{Op: op, Failed: failed}
	}
	return nil
}

// onSession rebinds the facade when the session transitions. The previous
// subscription is torn down before the new adapter is attached so exactly
// one subscription is ever active.
func (s *TaskSync) onSession(sess *session.Session) {
	s.teardownSubscription()

	if sess == nil {
		tasks := ordering.SortByOrder(s.local.Load())
		s.mu.Lock()
		s.mode = ModeLocal
		s.owner = ""
		s.tasks = tasks
		s.loading = false
		s.mu.Unlock()
		s.notifyWatchers()
		s.logger.Debugw("Bound guest store", "tasks", len(tasks))
		return
	}

	s.mu.Lock()
	s.mode = ModeRemote
	s.owner = sess.UID
	s.tasks = nil
	s.loading = true
	s.mu.Unlock()
	s.notifyWatchers()

	unsub, err := s.remote.Subscribe(context.Background(), sess.UID, s.onSnapshot)
	if err != nil {
		s.logger.Errorw("Failed to open task subscription", "uid", sess.UID, "error", err)
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

// onSnapshot receives collection snapshots from the remote subscription.
// A snapshot raced against an in-flight mutation may transiently reflect
// pre-mutation state; the mutation's own change notification follows and
// converges the view.
func (s *TaskSync) onSnapshot(tasks []entities.Task) {
	s.mu.Lock()
	if s.mode != ModeRemote {
		s.mu.Unlock()
		return
	}
	s.tasks = tasks
	s.loading = false
	s.mu.Unlock()
	s.notifyWatchers()
}

func (s *TaskSync) teardownSubscription() {
	s.mu.Lock()
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// commitLocal applies the optimistic snapshot, fans it out and persists
// the whole collection as one blob write.
func (s *TaskSync) commitLocal(next []entities.Task) error {
	s.mu.Lock()
	s.tasks = next
	s.mu.Unlock()
	s.notifyWatchers()

	if err := s.local.SaveAll(next); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

func (s *TaskSync) snapshotLocked() []entities.Task {
	out := make([]entities.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

func (s *TaskSync) notifyWatchers() {
	s.mu.Lock()
	snapshot := s.snapshotLocked()
	fns := make([]func([]entities.Task), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
