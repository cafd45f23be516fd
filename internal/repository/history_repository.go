package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/anime-shed/veritas-go/pkg/models"
)

// MemoryHistoryRepository keeps history in process memory. Nothing is
// persisted across restarts.
type MemoryHistoryRepository struct {
	mu    sync.RWMutex
	items map[string][]models.HistoryItem
}

// NewMemoryHistoryRepository creates an empty in-memory history store
func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{items: make(map[string][]models.HistoryItem)}
}

func (r *MemoryHistoryRepository) Prepend(ctx context.Context, sessionID string, item models.HistoryItem) (models.HistoryItem, error) {
	if err := ctx.Err(); err != nil {
		return models.HistoryItem{}, err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.items[sessionID]
	updated := make([]models.HistoryItem, 0, len(existing)+1)
	updated = append(updated, item)
	updated = append(updated, existing...)
	r.items[sessionID] = updated

	return item, nil
}

func (r *MemoryHistoryRepository) Recent(ctx context.Context, sessionID string, n int) ([]models.HistoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.items[sessionID]
	if n >= 0 && n < len(items) {
		items = items[:n]
	}
	return copyItems(items), nil
}

func (r *MemoryHistoryRepository) All(ctx context.Context, sessionID string) ([]models.HistoryItem, error) {
	return r.Recent(ctx, sessionID, -1)
}

func (r *MemoryHistoryRepository) Len(ctx context.Context, sessionID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items[sessionID]), nil
}

func (r *MemoryHistoryRepository) Get(ctx context.Context, sessionID, id string) (*models.HistoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items[sessionID] {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, ErrHistoryItemNotFound
}

func (r *MemoryHistoryRepository) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, sessionID)
	return nil
}

func copyItems(items []models.HistoryItem) []models.HistoryItem {
	out := make([]models.HistoryItem, len(items))
	copy(out, items)
	return out
}
