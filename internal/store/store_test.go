package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/models"
)

// exerciseStore runs the same contract against every backend
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "1"))
	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	require.NoError(t, s.MultiSet(ctx, map[string]string{"a": "2", "b": "ข้อมูล"}))
	v, _, _ = s.Get(ctx, "a")
	assert.Equal(t, "2", v)
	v, _, _ = s.Get(ctx, "b")
	assert.Equal(t, "ข้อมูล", v)

	require.NoError(t, s.Remove(ctx, "a", "b", "never-set"))
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.yaml")
	exerciseStore(t, NewFileStore(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.yaml")

	require.NoError(t, NewFileStore(path).Set(ctx, KeyUserName, "สมชาย"))

	v, ok, err := NewFileStore(path).Get(ctx, KeyUserName)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "สมชาย", v)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, _, err := NewFileStore(path).Get(context.Background(), "a")
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("DEKDEK_TEST_REDIS")
	if addr == "" {
		t.Skip("DEKDEK_TEST_REDIS not set")
	}

	ctx := context.Background()
	s, err := NewRedisStore(ctx, config.RedisConfig{Address: addr, Prefix: "dekdek-test"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStoreKeysArePrefixed(t *testing.T) {
	s := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "")
	defer s.Close()
	assert.Equal(t, "dekdek:userToken", s.key(KeyToken))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "etcd"})
	assert.Error(t, err)

	s, err := Open(context.Background(), config.StoreConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestIdentityRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := LoadIdentity(ctx, s)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	res := &models.AuthResult{
		Token: "tok",
		User: &models.User{
			ID:          42,
			Name:        "ครูแดง",
			Email:       "daeng@example.com",
			PhoneNumber: "0812345678",
			Role:        models.RoleSupervisor,
		},
	}
	require.NoError(t, SaveIdentity(ctx, s, IdentityFromAuth(res)))
	require.NoError(t, s.Set(ctx, KeyInstallationID, "install-1"))

	id, err := LoadIdentity(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 42, id.UserID)
	assert.Equal(t, models.RoleSupervisor, id.Role)
	assert.Equal(t, "ครูแดง", id.UserName)

	require.NoError(t, ClearIdentity(ctx, s))
	_, err = LoadIdentity(ctx, s)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	// installation id is kept across logout
	v, ok, _ := s.Get(ctx, KeyInstallationID)
	assert.True(t, ok)
	assert.Equal(t, "install-1", v)
}

func TestUserIDMalformed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := UserID(ctx, s)
	assert.ErrorIs(t, err, ErrNoUserID)

	require.NoError(t, s.Set(ctx, KeyUserID, "abc"))
	_, err = UserID(ctx, s)
	assert.ErrorIs(t, err, ErrNoUserID)
}
