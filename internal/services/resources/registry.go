package resources

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/convert-toolkit/internal/models"
	"go.uber.org/zap"
)

type entry struct {
	handle models.Handle
	data   []byte
}

// Registry keeps transient download handles. Every handle is released exactly
// once: when its owner acquires a replacement, on explicit release, or on Close.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	byOwner map[string]string
	baseURL string
	logger  *zap.Logger
	onFree  func(models.Handle)
}

func NewRegistry(baseURL string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		entries: make(map[string]*entry),
		byOwner: make(map[string]string),
		baseURL: baseURL,
		logger:  logger,
	}
}

// OnRelease registers a hook called once per released handle.
func (r *Registry) OnRelease(fn func(models.Handle)) {
	r.mu.Lock()
	r.onFree = fn
	r.mu.Unlock()
}

// Put stores data under a new handle for owner, releasing the owner's
// previous handle.
func (r *Registry) Put(owner string, data []byte, contentType, filename string) models.Handle {
	id := uuid.New().String()
	h := models.Handle{
		ID:          id,
		Owner:       owner,
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         r.baseURL + "/api/v1/handles/" + id,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	var released *models.Handle
	if prevID, ok := r.byOwner[owner]; ok {
		released = r.removeLocked(prevID)
	}
	r.entries[id] = &entry{handle: h, data: data}
	r.byOwner[owner] = id
	hook := r.onFree
	r.mu.Unlock()

	if released != nil {
		r.notify(hook, *released, "replaced")
	}
	return h
}

func (r *Registry) Get(id string) (models.Handle, []byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return models.Handle{}, nil, false
	}
	return e.handle, e.data, true
}

// Release frees a single handle. It reports false for unknown or already
// released handles.
func (r *Registry) Release(id string) bool {
	r.mu.Lock()
	released := r.removeLocked(id)
	hook := r.onFree
	r.mu.Unlock()

	if released == nil {
		return false
	}
	r.notify(hook, *released, "released")
	return true
}

// ReleaseOwner frees the handle held by owner and returns how many were freed.
func (r *Registry) ReleaseOwner(owner string) int {
	r.mu.Lock()
	id, ok := r.byOwner[owner]
	var released *models.Handle
	if ok {
		released = r.removeLocked(id)
	}
	hook := r.onFree
	r.mu.Unlock()

	if released == nil {
		return 0
	}
	r.notify(hook, *released, "owner released")
	return 1
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every remaining handle.
func (r *Registry) Close() {
	r.mu.Lock()
	released := make([]models.Handle, 0, len(r.entries))
	for id := range r.entries {
		if h := r.removeLocked(id); h != nil {
			released = append(released, *h)
		}
	}
	hook := r.onFree
	r.mu.Unlock()

	for _, h := range released {
		r.notify(hook, h, "closed")
	}
}

func (r *Registry) removeLocked(id string) *models.Handle {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	if r.byOwner[e.handle.Owner] == id {
		delete(r.byOwner, e.handle.Owner)
	}
	h := e.handle
	return &h
}

func (r *Registry) notify(hook func(models.Handle), h models.Handle, reason string) {
	r.logger.Debug("Handle released",
		zap.String("handle_id", h.ID),
		zap.String("owner", h.Owner),
		zap.String("reason", reason),
	)
	if hook != nil {
		hook(h)
	}
}
