package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
)

func TestSeedIsIdempotent(t *testing.T) {
	logger = zap.NewNop()
	ctx := context.Background()
	repo := storage.NewMemoryRepository()

	require.NoError(t, seed(ctx, repo))
	require.NoError(t, seed(ctx, repo))

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(demoUsers))

	parent, err := repo.GetUserByEmail(ctx, "parent@dekdek.local")
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(parent.PasswordHash), []byte(demoPassword)))

	kids, err := repo.ListChildrenByParent(ctx, parent.ID)
	require.NoError(t, err)
	assert.Len(t, kids, 2)

	supervisor, err := repo.GetUserByEmail(ctx, "supervisor@dekdek.local")
	require.NoError(t, err)
	rooms, err := repo.ListRoomsBySupervisor(ctx, supervisor.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)

	has, err := repo.SupervisorHasChild(ctx, supervisor.ID, kids[0].ID)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, models.RoleSupervisor, supervisor.Role)
}
