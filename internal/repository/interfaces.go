package repository

import (
	"context"

	"github.com/anime-shed/veritas-go/internal/storage"
	"github.com/anime-shed/veritas-go/pkg/models"
)

// MediaRepository resolves submitted URLs to the content they point at
type MediaRepository interface {
	// ValidateMediaURL checks a URL is acceptable to fetch
	ValidateMediaURL(ctx context.Context, mediaURL string) error

	// FetchMedia downloads the content behind a URL. HTML pages are
	// returned as is; see PageText.
	FetchMedia(ctx context.Context, mediaURL string) (*storage.FetchedMedia, error)
}

// HistoryRepository stores completed verifications per session, most recent first
type HistoryRepository interface {
	// Prepend stores item at the head of the session's history, assigning
	// an ID when the item has none
	Prepend(ctx context.Context, sessionID string, item models.HistoryItem) (models.HistoryItem, error)

	// Recent returns up to n items, newest first
	Recent(ctx context.Context, sessionID string, n int) ([]models.HistoryItem, error)

	// All returns the full history, newest first
	All(ctx context.Context, sessionID string) ([]models.HistoryItem, error)

	// Len returns the number of stored items
	Len(ctx context.Context, sessionID string) (int, error)

	// Get looks up a single item by ID
	Get(ctx context.Context, sessionID, id string) (*models.HistoryItem, error)

	// Delete drops the whole history of a session
	Delete(ctx context.Context, sessionID string) error
}
