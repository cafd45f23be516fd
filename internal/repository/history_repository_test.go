package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/veritas-go/pkg/models"
)

func item(preview string) models.HistoryItem {
	return models.HistoryItem{
		Preview: preview,
		Kind:    models.ContentKindText,
		Result:  models.VerificationResult{Verdict: models.VerdictAuthentic, Score: 90},
	}
}

func TestMemoryHistoryRepository_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	for i := 1; i <= 5; i++ {
		stored, err := repo.Prepend(ctx, "s1", item(fmt.Sprintf("item %d", i)))
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
	}

	all, err := repo.All(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "item 5", all[0].Preview)
	assert.Equal(t, "item 1", all[4].Preview)

	recent, err := repo.Recent(ctx, "s1", models.HistoryDisplayLimit)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"item 5", "item 4", "item 3"}, []string{recent[0].Preview, recent[1].Preview, recent[2].Preview})

	n, err := repo.Len(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMemoryHistoryRepository_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	_, err := repo.Prepend(ctx, "a", item("for a"))
	require.NoError(t, err)

	items, err := repo.All(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestMemoryHistoryRepository_KeepsGivenID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	in := item("x")
	in.ID = "fixed"
	stored, err := repo.Prepend(ctx, "s", in)
	require.NoError(t, err)
	assert.Equal(t, "fixed", stored.ID)

	got, err := repo.Get(ctx, "s", "fixed")
	require.NoError(t, err)
	assert.Equal(t, "x", got.Preview)

	_, err = repo.Get(ctx, "s", "missing")
	assert.ErrorIs(t, err, ErrHistoryItemNotFound)
}

func TestMemoryHistoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()
	_, err := repo.Prepend(ctx, "s", item("original"))
	require.NoError(t, err)

	items, err := repo.All(ctx, "s")
	require.NoError(t, err)
	items[0].Preview = "mutated"

	again, err := repo.All(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Preview)
}

func TestMemoryHistoryRepository_ConcurrentPrepend(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryHistoryRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Prepend(ctx, "s", item(fmt.Sprint(i)))
		}(i)
	}
	wg.Wait()

	n, err := repo.Len(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestMemoryHistoryRepository_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryHistoryRepository().Prepend(ctx, "s", item("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
