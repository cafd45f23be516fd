package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anime-shed/veritas-go/pkg/models"
)

func result() models.VerificationResult {
	return models.VerificationResult{Verdict: models.VerdictSuspicious, Score: 42, Provider: "test"}
}

func TestSessionLifecycle(t *testing.T) {
	s := New("s1")
	assert.Equal(t, models.StatusIdle, s.Status())

	input := &models.InputSummary{Kind: models.ContentKindText, Text: "hello"}
	require.NoError(t, s.Begin(input))
	assert.Equal(t, models.StatusAnalyzing, s.Status())

	assert.ErrorIs(t, s.Begin(input), ErrAnalysisInProgress)
	assert.ErrorIs(t, s.Reset(), ErrAnalysisInProgress)

	require.NoError(t, s.Complete(result()))
	snap := s.Snapshot()
	assert.Equal(t, models.StatusComplete, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, models.VerdictSuspicious, snap.Result.Verdict)
	assert.Equal(t, "hello", snap.Input.Text)
	assert.Empty(t, snap.Error)

	require.NoError(t, s.Reset())
	snap = s.Snapshot()
	assert.Equal(t, models.StatusIdle, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Nil(t, snap.Input)
}

func TestSessionFailThenResubmit(t *testing.T) {
	s := New("s1")
	require.NoError(t, s.Begin(&models.InputSummary{Kind: models.ContentKindURL, URL: "https://x"}))
	require.NoError(t, s.Fail("Analysis failed"))

	snap := s.Snapshot()
	assert.Equal(t, models.StatusError, snap.Status)
	assert.Equal(t, "Analysis failed", snap.Error)
	assert.Nil(t, snap.Result)

	// a new submission from Error clears the old error
	require.NoError(t, s.Begin(&models.InputSummary{Kind: models.ContentKindText, Text: "again"}))
	snap = s.Snapshot()
	assert.Equal(t, models.StatusAnalyzing, snap.Status)
	assert.Empty(t, snap.Error)
}

func TestSessionCompleteRequiresAnalyzing(t *testing.T) {
	s := New("s1")
	assert.ErrorIs(t, s.Complete(result()), ErrNotAnalyzing)
	assert.ErrorIs(t, s.Fail("x"), ErrNotAnalyzing)
	assert.Equal(t, models.StatusIdle, s.Status())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("s1")
	require.NoError(t, s.Begin(&models.InputSummary{Kind: models.ContentKindText, Text: "hi"}))
	require.NoError(t, s.Complete(result()))

	snap := s.Snapshot()
	snap.Result.Score = 0
	snap.Input.Text = "changed"

	again := s.Snapshot()
	assert.Equal(t, 42.0, again.Result.Score)
	assert.Equal(t, "hi", again.Input.Text)
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	s := New("s1")
	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin(&models.InputSummary{Kind: models.ContentKindText, Text: "x"}) == nil {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted)
}

func TestManager(t *testing.T) {
	m := NewManager()

	a, created := m.GetOrCreate("abc")
	assert.True(t, created)
	b, created := m.GetOrCreate(" abc ")
	assert.False(t, created)
	assert.Same(t, a, b)

	fresh, created := m.GetOrCreate("")
	assert.True(t, created)
	assert.NotEmpty(t, fresh.ID())
	assert.NotEqual(t, "abc", fresh.ID())

	_, ok := m.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 2, m.Len())
}

func TestManagerEvictIdle(t *testing.T) {
	m := NewManager()
	input := &models.InputSummary{Kind: models.ContentKindText, Text: "x"}
	m.GetOrCreate("idle")
	busy, _ := m.GetOrCreate("busy")
	require.NoError(t, busy.Begin(input))
	done, _ := m.GetOrCreate("done")
	require.NoError(t, done.Begin(input))
	require.NoError(t, done.Complete(models.VerificationResult{Verdict: models.VerdictAuthentic}))
	failed, _ := m.GetOrCreate("failed")
	require.NoError(t, failed.Begin(input))
	require.NoError(t, failed.Fail("boom"))

	time.Sleep(50 * time.Millisecond)
	fresh, _ := m.GetOrCreate("fresh")
	require.NoError(t, fresh.Begin(input))
	require.NoError(t, fresh.Fail("recent"))
	evicted := m.EvictIdle(25 * time.Millisecond)

	assert.ElementsMatch(t, []string{"idle", "done", "failed"}, evicted)
	_, ok := m.Get("busy")
	assert.True(t, ok)
	_, ok = m.Get("fresh")
	assert.True(t, ok)
}

func TestMemoryLock(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "s1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	other, err := l.Acquire(ctx, "s2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "s1")
	require.NoError(t, err)
	again()
}

func TestRedisLockUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	l := NewRedisLock(client, time.Second)
	defer l.Close()

	_, err := l.Acquire(context.Background(), "s1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAnalysisInProgress)
	assert.Contains(t, err.Error(), "acquire session lock")
}

func TestConnect(t *testing.T) {
	client, err := Connect("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	client.Close()

	client, err = Connect("localhost:6380")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", client.Options().Addr)
	client.Close()

	_, err = Connect("redis://:bad url")
	assert.Error(t, err)
}
