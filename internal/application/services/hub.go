package services

import (
	"sync"

	"github.com/daymark/core/internal/bridge"
	"github.com/daymark/core/internal/infrastructure/logger"
	"github.com/daymark/core/internal/ports"
	"github.com/daymark/core/internal/session"
)

// Workspace bundles the session source and the two sync facades that
// follow it. Each workspace owns its own subscriptions.
type Workspace struct {
	Source *session.Source
	Tasks  *TaskSync
	Notes  *NoteSync
}

// Close tears down both facades and their remote subscriptions.
func (w *Workspace) Close() {
	w.Tasks.Close()
	w.Notes.Close()
}

// Hub hands out workspaces: one shared guest workspace backed by the
// local blob store, and one workspace per signed-in user backed by the
// remote document store. Workspaces are created lazily and cached.
type Hub struct {
	taskLocal  ports.TaskLocalStore
	noteLocal  ports.NoteLocalStore
	taskRemote ports.TaskRemoteStore
	noteRemote ports.NoteRemoteStore
	bridge     bridge.Poster
	logger     *logger.Logger

	mu    sync.Mutex
	guest *Workspace
	users map[string]*Workspace
}

// NewHub creates a workspace hub over the given adapters.
func NewHub(taskLocal ports.TaskLocalStore, noteLocal ports.NoteLocalStore, taskRemote ports.TaskRemoteStore, noteRemote ports.NoteRemoteStore, poster bridge.Poster, log *logger.Logger) *Hub {
	return &Hub{
		taskLocal:  taskLocal,
		noteLocal:  noteLocal,
		taskRemote: taskRemote,
		noteRemote: noteRemote,
		bridge:     poster,
		logger:     log,
		users:      make(map[string]*Workspace),
	}
}

// Guest returns the shared guest workspace, creating it on first use.
func (h *Hub) Guest() *Workspace {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.guest == nil {
		h.guest = h.newWorkspace()
		h.guest.Source.Resolve(nil)
		h.logger.Debugw("Guest workspace created")
	}
	return h.guest
}

// ForUser returns the workspace for a signed-in user, creating it on
// first use. The workspace's session is resolved to the user before it
// is returned, so its facades are already in remote mode.
func (h *Hub) ForUser(uid, email string) *Workspace {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ws, ok := h.users[uid]; ok {
		return ws
	}

	ws := h.newWorkspace()
	ws.Source.Resolve(&session.Session{UID: uid, Email: email})
	h.users[uid] = ws
	h.logger.Debugw("User workspace created", "uid", uid)
	return ws
}

// Evict closes and forgets a user's workspace. Used on logout so the
// next request builds a fresh one.
func (h *Hub) Evict(uid string) {
	h.mu.Lock()
	ws, ok := h.users[uid]
	delete(h.users, uid)
	h.mu.Unlock()

	if ok {
		ws.Close()
		h.logger.Debugw("User workspace evicted", "uid", uid)
	}
}

// Close tears down every workspace.
func (h *Hub) Close() {
	h.mu.Lock()
	guest := h.guest
	users := h.users
	h.guest = nil
	h.users = make(map[string]*Workspace)
	h.mu.Unlock()

	if guest != nil {
		guest.Close()
	}
	for _, ws := range users {
		ws.Close()
	}
}

func (h *Hub) newWorkspace() *Workspace {
	src := session.NewSource(h.bridge, h.logger)
	return &Workspace{
		Source: src,
		Tasks:  NewTaskSync(h.taskLocal, h.taskRemote, src, h.logger),
		Notes:  NewNoteSync(h.noteLocal, h.noteRemote, src, h.logger),
	}
}
