package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/ordering"
	"github.com/daymark/core/internal/ports"
)

// Tasks is the remote task adapter over the shared document store.
type Tasks struct {
	store  *Store
	layout Layout
}

// NewTasks creates the task adapter with the given collection layout.
func NewTasks(store *Store, layout Layout) *Tasks {
	return &Tasks{store: store, layout: layout}
}

// taskData is the JSONB portion of a task document. Temporal fields live
// in native columns, everything else here.
type taskData struct {
	Text      string            `json:"text"`
	Completed bool              `json:"completed"`
	Priority  entities.Priority `json:"priority"`
	Order     int               `json:"order"`
}

// Subscribe opens a live query on the owner's tasks. Snapshots are sorted
// by order before delivery.
func (t *Tasks) Subscribe(ctx context.Context, ownerID string, fn func([]entities.Task)) (ports.UnsubscribeFunc, error) {
	stop, err := t.store.subscribe(ctx, t.layout, ownerID, func(docs []document) {
		tasks := make([]entities.Task, 0, len(docs))
		for _, doc := range docs {
			task, err := docToTask(doc)
			if err != nil {
				t.store.logger.Warnw("Skipping undecodable task document", "id", doc.ID, "error", err)
				continue
			}
			tasks = append(tasks, task)
		}
		fn(ordering.SortByOrder(tasks))
	})
	if err != nil {
		return nil, err
	}
	return stop, nil
}

// Add creates a task record; the store assigns the identifier.
func (t *Tasks) Add(ctx context.Context, ownerID string, task entities.Task) (string, error) {
	doc, err := taskToDoc(task)
	if err != nil {
		return "", err
	}
	return t.store.insert(ctx, t.layout, ownerID, doc)
}

// Update applies a partial field-level patch.
func (t *Tasks) Update(ctx context.Context, ownerID, id string, patch ports.TaskPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	fields := make(map[string]interface{})
	if patch.Text != nil {
		fields["text"] = *patch.Text
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}
	if patch.Priority != nil {
		fields["priority"] = *patch.Priority
	}
	if patch.Order != nil {
		fields["order"] = *patch.Order
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode task patch: %w", err)
	}

	var due *time.Time
	setDue := patch.ClearDueDate
	if patch.DueDate != nil {
		d := millisToTime(*patch.DueDate)
		due = &d
		setDue = true
	}

	err = t.store.patch(ctx, t.layout, ownerID, id, data, due, setDue, false)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrTaskNotFound
	}
	return err
}

// Delete removes one task record.
func (t *Tasks) Delete(ctx context.Context, ownerID, id string) error {
	err := t.store.delete(ctx, t.layout, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrTaskNotFound
	}
	return err
}

// BulkDelete issues one delete per id concurrently. Deletes are independent
// and not atomic as a group: on partial failure some records are gone and
// some are not, reported per id.
func (t *Tasks) BulkDelete(ctx context.Context, ownerID string, ids []string) error {
	failed := make(map[string]error)
	var g errgroup.Group
	results := make([]error, len(ids))
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = t.Delete(ctx, ownerID, id)
			return nil
		})
	}
	g.Wait()

	for i, id := range ids {
		if results[i] != nil {
			failed[id] = results[i]
		}
	}
	if len(failed) > 0 {
		return &ports.BulkError{Op: "bulk delete", Failed: failed}
	}
	return nil
}

func taskToDoc(task entities.Task) (document, error) {
	data, err := json.Marshal(taskData{
		Text:      task.Text,
		Completed: task.Completed,
		Priority:  task.Priority,
		Order:     task.Order,
	})
	if err != nil {
		return document{}, fmt.Errorf("failed to encode task: %w", err)
	}

	doc := document{
		Data:      data,
		CreatedAt: millisToTime(task.CreatedAt),
		UpdatedAt: millisToTime(task.CreatedAt),
	}
	if task.DueDate != nil {
		due := millisToTime(*task.DueDate)
		doc.DueDate = &due
	}
	return doc, nil
}

func docToTask(doc document) (entities.Task, error) {
	var data taskData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return entities.Task{}, fmt.Errorf("failed to decode task document: %w", err)
	}

	task := entities.Task{
		ID:        doc.ID,
		Text:      data.Text,
		Completed: data.Completed,
		Priority:  data.Priority,
		Order:     data.Order,
		CreatedAt: timeToMillis(doc.CreatedAt),
	}
	if doc.DueDate != nil {
		due := timeToMillis(*doc.DueDate)
		task.DueDate = &due
	}
	return task, nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timeToMillis(t time.Time) int64 {
	return t.UnixMilli()
}
