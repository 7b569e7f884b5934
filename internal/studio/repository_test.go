package studio

import (
	"errors"
	"sync"
	"testing"
)

func TestInMemoryRepository_Create(t *testing.T) {
	repo := NewInMemoryRepository()
	sess := &EditorSession{ID: SessionID("s1")}

	t.Run("success", func(t *testing.T) {
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := repo.Get(SessionID("s1"))
		if err != nil || got != sess {
			t.Errorf("Get: got %p, %v", got, err)
		}
	})

	t.Run("duplicate_id", func(t *testing.T) {
		err := repo.Create(&EditorSession{ID: SessionID("s1")})
		if !errors.Is(err, ErrSessionExists) {
			t.Errorf("expected ErrSessionExists, got %v", err)
		}
	})
}

func TestInMemoryRepository_Get_not_found(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.Get(SessionID("missing")); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestInMemoryRepository_Remove(t *testing.T) {
	repo := NewInMemoryRepository()
	sess := &EditorSession{ID: SessionID("s1")}
	_ = repo.Create(sess)

	got, err := repo.Remove(SessionID("s1"))
	if err != nil || got != sess {
		t.Fatalf("Remove: got %p, %v", got, err)
	}
	if repo.Count() != 0 {
		t.Errorf("Count after remove = %d", repo.Count())
	}
	if _, err := repo.Remove(SessionID("s1")); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second Remove: expected ErrSessionNotFound, got %v", err)
	}
}

func TestInMemoryRepository_List_sorted(t *testing.T) {
	repo := NewInMemoryRepository()
	for _, id := range []SessionID{"c", "a", "b"} {
		_ = repo.Create(&EditorSession{ID: id})
	}
	ids := repo.List()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("List = %v, want [a b c]", ids)
	}
}

func TestNewInMemoryRepositoryWithStore(t *testing.T) {
	store := NewInMemoryStore()
	store.SetSession(&EditorSession{ID: SessionID("pre")})
	repo := NewInMemoryRepositoryWithStore(store)

	if _, err := repo.Get(SessionID("pre")); err != nil {
		t.Errorf("repository should read through the given store: %v", err)
	}
	if repo.Count() != 1 {
		t.Errorf("Count = %d, want 1", repo.Count())
	}
}

func TestInMemoryRepository_concurrent_create(t *testing.T) {
	repo := NewInMemoryRepository()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.Create(&EditorSession{ID: SessionID("same")}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
}
