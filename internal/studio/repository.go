package studio

import (
	"errors"
	"sort"
	"sync"
)

// Repository defines the concurrency-safe contract for the open editor sessions.
type Repository interface {
	// Create adds a session. It fails with ErrSessionExists if the id is taken.
	Create(s *EditorSession) error

	// Get returns the session or ErrSessionNotFound.
	Get(id SessionID) (*EditorSession, error)

	// Remove takes the session out of the repository and returns it so the
	// caller can close it. Removing a missing session returns ErrSessionNotFound.
	Remove(id SessionID) (*EditorSession, error)

	// List returns the session ids in lexical order.
	List() []SessionID

	// Count returns the number of open sessions. Used for metrics.
	Count() int
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Create implements Repository.Create.
func (r *InMemoryRepository) Create(s *EditorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.store.GetSession(s.ID); exists {
		return ErrSessionExists
	}
	r.store.SetSession(s)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(id SessionID) (*EditorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.store.GetSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove implements Repository.Remove.
func (r *InMemoryRepository) Remove(id SessionID) (*EditorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store.GetSession(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	r.store.DeleteSession(id)
	return s, nil
}

// List implements Repository.List.
func (r *InMemoryRepository) List() []SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.store.ListSessionIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count implements Repository.Count.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.store.ListSessionIDs())
}
