package repository

import (
	"context"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/repository"
)

// MemoryRepository keeps tickets for the lifetime of the process. It is
// used when no database is configured.
type MemoryRepository struct {
	mu        sync.Mutex
	feedback  map[string]repository.Feedback
	blacklist map[string]repository.BlacklistEntry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		feedback:  make(map[string]repository.Feedback),
		blacklist: make(map[string]repository.BlacklistEntry),
	}
}

func (r *MemoryRepository) SaveFeedback(_ context.Context, f *repository.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback[f.ID] = *f
	return nil
}

func (r *MemoryRepository) GetFeedback(_ context.Context, id string) (*repository.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feedback[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (r *MemoryRepository) SetBlacklist(_ context.Context, userID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.blacklist[userID]
	if !ok {
		e = repository.BlacklistEntry{UserID: userID, CreatedAt: time.Now()}
	}
	e.Until = until
	r.blacklist[userID] = e
	return nil
}

func (r *MemoryRepository) GetBlacklist(_ context.Context, userID string) (*repository.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.blacklist[userID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *MemoryRepository) DeleteBlacklist(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blacklist, userID)
	return nil
}
