package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/daymark/core/internal/domain/entities"
	"github.com/daymark/core/internal/ports"
)

// Notes is the remote note adapter over the shared document store.
type Notes struct {
	store  *Store
	layout Layout
}

// NewNotes creates the note adapter with the given collection layout.
func NewNotes(store *Store, layout Layout) *Notes {
	return &Notes{store: store, layout: layout}
}

type noteData struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color"`
	IsPinned bool     `json:"isPinned"`
}

// Subscribe opens a live query on the owner's notes. Snapshots are sorted
// most-recently-updated first, matching the remote query ordering the view
// expects.
func (n *Notes) Subscribe(ctx context.Context, ownerID string, fn func([]entities.Note)) (ports.UnsubscribeFunc, error) {
	stop, err := n.store.subscribe(ctx, n.layout, ownerID, func(docs []document) {
		notes := make([]entities.Note, 0, len(docs))
		for _, doc := range docs {
			note, err := docToNote(doc)
			if err != nil {
				n.store.logger.Warnw("Skipping undecodable note document", "id", doc.ID, "error", err)
				continue
			}
			notes = append(notes, note)
		}
		sort.SliceStable(notes, func(i, j int) bool { return notes[i].UpdatedAt > notes[j].UpdatedAt })
		fn(notes)
	})
	if err != nil {
		return nil, err
	}
	return stop, nil
}

// Add creates a note record; the store assigns the identifier.
func (n *Notes) Add(ctx context.Context, ownerID string, note entities.Note) (string, error) {
	doc, err := noteToDoc(note)
	if err != nil {
		return "", err
	}
	return n.store.insert(ctx, n.layout, ownerID, doc)
}

// Update applies a partial patch and bumps the record's update instant.
func (n *Notes) Update(ctx context.Context, ownerID, id string, patch ports.NotePatch) error {
	fields := make(map[string]interface{})
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Content != nil {
		fields["content"] = *patch.Content
	}
	if patch.Tags != nil {
		fields["tags"] = entities.NormalizeTags(*patch.Tags)
	}
	if patch.Color != nil {
		fields["color"] = *patch.Color
	}
	if patch.IsPinned != nil {
		fields["isPinned"] = *patch.IsPinned
	}
	if len(fields) == 0 {
		return nil
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode note patch: %w", err)
	}

	err = n.store.patch(ctx, n.layout, ownerID, id, data, nil, false, true)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrNoteNotFound
	}
	return err
}

// Delete removes one note record.
func (n *Notes) Delete(ctx context.Context, ownerID, id string) error {
	err := n.store.delete(ctx, n.layout, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrNoteNotFound
	}
	return err
}

func noteToDoc(note entities.Note) (document, error) {
	data, err := json.Marshal(noteData{
		Title:    note.Title,
		Content:  note.Content,
		Tags:     entities.NormalizeTags(note.Tags),
		Color:    note.Color,
		IsPinned: note.IsPinned,
	})
	if err != nil {
		return document{}, fmt.Errorf("failed to encode note: %w", err)
	}

	return document{
		Data:      data,
		CreatedAt: millisToTime(note.CreatedAt),
		UpdatedAt: millisToTime(note.UpdatedAt),
	}, nil
}

func docToNote(doc document) (entities.Note, error) {
	var data noteData
	if err := json.Unmarshal(doc.Data, &data); err != nil {
		return entities.Note{}, fmt.Errorf("failed to decode note document: %w", err)
	}

	return entities.Note{
		ID:        doc.ID,
		Title:     data.Title,
		Content:   data.Content,
		Tags:      data.Tags,
		Color:     data.Color,
		IsPinned:  data.IsPinned,
		CreatedAt: timeToMillis(doc.CreatedAt),
		UpdatedAt: timeToMillis(doc.UpdatedAt),
	}, nil
}
