// Package localstore persists guest-mode collections as single JSON blobs
// under fixed keys, mirroring the browser-storage layout the data format is
// compatible with. There is no partial write: every save rewrites the whole
// collection.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/infrastructure/logger"
)

// Storage keys. These match the keys the persisted blobs were written
// under historically, so existing guest data keeps loading.
const (
	TasksKey = "local_todos"
	NotesKey = "local_notes"
)

// TaskStore stores the guest task collection.
type TaskStore struct {
	blob *blobFile
}

// NoteStore stores the guest note collection.
type NoteStore struct {
	blob *blobFile
}

// NewTaskStore creates a guest task store rooted at dir.
func NewTaskStore(dir string, log *logger.Logger) *TaskStore {
	return &TaskStore{blob: newBlobFile(dir, TasksKey, log)}
}

// NewNoteStore creates a guest note store rooted at dir.
func NewNoteStore(dir string, log *logger.Logger) *NoteStore {
	return &NoteStore{blob: newBlobFile(dir, NotesKey, log)}
}

// Load reads the stored collection. An absent or malformed blob yields an
// empty collection; parse failures are logged and never surfaced.
func (s *TaskStore) Load() []entities.Task {
	var tasks []entities.Task
	if !s.blob.load(&tasks) {
		return nil
	}
	return tasks
}

// SaveAll rewrites the stored collection.
func (s *TaskStore) SaveAll(tasks []entities.Task) error {
	return s.blob.save(tasks)
}

// Load reads the stored collection, empty on absence or parse failure.
func (s *NoteStore) Load() []entities.Note {
	var notes []entities.Note
	if !s.blob.load(&notes) {
		return nil
	}
	return notes
}

// SaveAll rewrites the stored collection.
func (s *NoteStore) SaveAll(notes []entities.Note) error {
	return s.blob.save(notes)
}

// blobFile reads and writes one JSON value under a fixed key in a
// directory. Writes go through a temp file and rename so a crashed save
// never leaves a half-written blob.
type blobFile struct {
	path   string
	logger *logger.Logger
}

func newBlobFile(dir, key string, log *logger.Logger) *blobFile {
	return &blobFile{
		path:   filepath.Join(dir, key+".json"),
		logger: log.WithComponent("localstore").WithFields("key", key),
	}
}

// load decodes the blob into dest, reporting whether anything was loaded.
func (b *blobFile) load(dest interface{}) bool {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.logger.Warnw("Failed to read local blob", "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		b.logger.Warnw("Discarding malformed local blob", "error", err)
		return false
	}
	return true
}

func (b *blobFile) save(value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode local blob: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("failed to create local store dir: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write local blob: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("failed to replace local blob: %w", err)
	}
	return nil
}
