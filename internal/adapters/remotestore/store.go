// Package remotestore implements the authenticated-mode document store on
// Postgres. Records live in one documents table as JSONB plus native
// temporal columns; live subscriptions are driven by LISTEN/NOTIFY, with
// every change re-querying the owner's full collection snapshot.
package remotestore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/daymark/core/internal/infrastructure/logger"
)

const (
	notifyChannel = "daymark_documents"

	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
)

// document is one row of the documents table.
type document struct {
	ID         string         `db:"id"`
	Collection string         `db:"collection"`
	OwnerID    string         `db:"owner_id"`
	Data       types.JSONText `db:"data"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
	DueDate    *time.Time     `db:"due_date"`
}

// Store is the shared document store underneath the typed Tasks and Notes
// adapters. One change listener connection serves all subscriptions.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger

	listener *pq.Listener

	mu     sync.Mutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

type subscription struct {
	key     string
	refresh func()
}

// NewStore opens the change listener and starts dispatching notifications.
// dsn must reach the same database as db.
func NewStore(db *sqlx.DB, dsn string, log *logger.Logger) (*Store, error) {
	s := &Store{
		db:     db,
		logger: log.WithComponent("remotestore"),
		subs:   make(map[int]*subscription),
	}

	s.listener = pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				s.logger.Warnw("Change listener event", "event", int(ev), "error", err)
			}
		})

	if err := s.listener.Listen(notifyChannel); err != nil {
		s.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
	}

	go s.dispatch()

	return s, nil
}

// Close tears down the change listener. Active subscriptions stop
// receiving snapshots.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.listener.Close()
}

// dispatch fans incoming notifications out to matching subscriptions. A nil
// notification signals a listener reconnect, after which every snapshot may
// be stale, so all subscriptions refresh.
func (s *Store) dispatch() {
	for n := range s.listener.Notify {
		if n == nil {
			s.refreshMatching(func(string) bool { return true })
			continue
		}
		key := n.Extra
		s.refreshMatching(func(k string) bool { return k == key })
	}
}

func (s *Store) refreshMatching(match func(string) bool) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, sub := range s.subs {
		if match(sub.key) {
			fns = append(fns, sub.refresh)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// subscribe registers a snapshot consumer for one owner's collection and
// delivers the initial snapshot before returning.
func (s *Store) subscribe(ctx context.Context, layout Layout, ownerID string, deliver func([]document)) (func(), error) {
	key := notifyKey(layout, ownerID)

	refresh := func() {
		docs, err := s.list(context.Background(), layout, ownerID)
		if err != nil {
			s.logger.Errorw("Failed to refresh snapshot", "key", key, "error", err)
			return
		}
		deliver(docs)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("remote store is closed")
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = &subscription{key: key, refresh: refresh}
	s.mu.Unlock()

	stop := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}

	docs, err := s.list(ctx, layout, ownerID)
	if err != nil {
		stop()
		return nil, err
	}
	deliver(docs)

	return stop, nil
}

func (s *Store) list(ctx context.Context, layout Layout, ownerID string) ([]document, error) {
	collection := layout.CollectionFor(ownerID)

	var (
		docs []document
		err  error
	)
	if layout.FilterByOwner() {
		err = s.db.SelectContext(ctx, &docs, `
			SELECT id, collection, owner_id, data, created_at, updated_at, due_date
			FROM documents
			WHERE collection = $1 AND owner_id = $2
		`, collection, ownerID)
	} else {
		err = s.db.SelectContext(ctx, &docs, `
			SELECT id, collection, owner_id, data, created_at, updated_at, due_date
			FROM documents
			WHERE collection = $1
		`, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	return docs, nil
}

// insert creates a document with a server-assigned identifier and returns it.
func (s *Store) insert(ctx context.Context, layout Layout, ownerID string, doc document) (string, error) {
	collection := layout.CollectionFor(ownerID)

	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, collection, owner_id, data, created_at, updated_at, due_date)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id
	`, collection, ownerID, doc.Data, doc.CreatedAt, doc.UpdatedAt, doc.DueDate).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", collection, err)
	}

	s.notify(ctx, layout, ownerID)
	return id, nil
}

// patch applies a partial update: merge into the JSONB data, optionally
// replace the due-date column, optionally bump updated_at.
func (s *Store) patch(ctx context.Context, layout Layout, ownerID, id string, data []byte, due *time.Time, setDue, touch bool) error {
	collection := layout.CollectionFor(ownerID)

	query := `UPDATE documents SET data = data || $1::jsonb`
	args := []interface{}{types.JSONText(data)}
	if setDue {
		args = append(args, due)
		query += fmt.Sprintf(", due_date = $%d", len(args))
	}
	if touch {
		args = append(args, time.Now().UTC())
		query += fmt.Sprintf(", updated_at = $%d", len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))
	args = append(args, collection)
	query += fmt.Sprintf(" AND collection = $%d", len(args))
	if layout.FilterByOwner() {
		args = append(args, ownerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	s.notify(ctx, layout, ownerID)
	return nil
}

func (s *Store) delete(ctx context.Context, layout Layout, ownerID, id string) error {
	collection := layout.CollectionFor(ownerID)

	query := `DELETE FROM documents WHERE id = $1 AND collection = $2`
	args := []interface{}{id, collection}
	if layout.FilterByOwner() {
		args = append(args, ownerID)
		query += " AND owner_id = $3"
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	s.notify(ctx, layout, ownerID)
	return nil
}

// notify wakes subscriptions for the owner's collection. Failing to notify
// only delays convergence until the next change, so errors are logged, not
// returned.
func (s *Store) notify(ctx context.Context, layout Layout, ownerID string) {
	key := notifyKey(layout, ownerID)
	if _, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, key); err != nil {
		s.logger.Warnw("Failed to notify collection change", "key", key, "error", err)
	}
}

// notifyKey scopes change notifications to one owner's collection. For
// subcollection layouts the collection name already embeds the owner.
func notifyKey(layout Layout, ownerID string) string {
	collection := layout.CollectionFor(ownerID)
	if layout.FilterByOwner() {
		return collection + "|" + ownerID
	}
	return collection
}
