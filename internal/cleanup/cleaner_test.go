package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
)

type countingPruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (p *countingPruner) DeleteReadNotificationsBefore(_ context.Context, before time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, before)
	return 0, p.err
}

func (p *countingPruner) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cutoffs)
}

func TestCleanerRunsImmediatelyAndOnTick(t *testing.T) {
	defer goleak.VerifyNone(t)

	pruner := &countingPruner{}
	c := NewCleaner(pruner, 10*time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := c.Start(ctx)

	require.Eventually(t, func() bool { return pruner.calls() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
}

func TestCleanerSurvivesErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	pruner := &countingPruner{err: errors.New("database is down")}
	c := NewCleaner(pruner, 10*time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := c.Start(ctx)

	require.Eventually(t, func() bool { return pruner.calls() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-stopped
}

func TestCleanupUsesRetention(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()

	user := &models.User{Name: "p", Email: "p@example.com", Role: models.RoleParent}
	require.NoError(t, repo.CreateUser(ctx, user))

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, n := range []*models.Notification{
		{ID: "old-read", UserID: user.ID, CreatedAt: now.Add(-48 * time.Hour), IsRead: true},
		{ID: "old-unread", UserID: user.ID, CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "new-read", UserID: user.ID, CreatedAt: now.Add(-time.Hour), IsRead: true},
	} {
		require.NoError(t, repo.CreateNotification(ctx, n))
	}

	c := NewCleaner(repo, time.Minute, 24*time.Hour, zap.NewNop())
	c.now = func() time.Time { return now }
	c.cleanup(ctx)

	left, err := repo.ListNotifications(ctx, user.ID)
	require.NoError(t, err)

	ids := make([]string, 0, len(left))
	for _, n := range left {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{"old-unread", "new-read"}, ids)
}

func TestNewCleanerDefaults(t *testing.T) {
	c := NewCleaner(&countingPruner{}, 0, 0, zap.NewNop())
	assert.Equal(t, 10*time.Minute, c.interval)
	assert.Equal(t, 30*24*time.Hour, c.retention)
}
