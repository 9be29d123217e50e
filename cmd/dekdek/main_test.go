package main

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/api"
	"github.com/dekdek-app/dekdek/internal/catalog"
	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/progression"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
	"github.com/dekdek-app/dekdek/pkg/client"
)

func TestParseID(t *testing.T) {
	id, err := parseID("child id", "12")
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID("child id", bad)
		assert.Error(t, err, bad)
	}
}

func TestDescribe(t *testing.T) {
	assert.Contains(t, describe(store.ErrNotLoggedIn), "dekdek login")
	assert.Contains(t, describe(validation.Errors{"email": "email must be a valid email address"}), "validation failed")
	assert.Equal(t, client.UserMessage(client.ErrMissingAttemptToken), describe(client.ErrMissingAttemptToken))
	assert.Equal(t, "boom", describe(errors.New("boom")))
}

func startStub(t *testing.T) string {
	t.Helper()

	loader := catalog.NewLoader(zap.NewNop())
	loader.Add(&catalog.Sequence{
		Aspect: models.AspectGM,
		Items: []*models.AssessmentDetails{
			{ID: 1, Aspect: models.AspectGM, AgeRange: "0-1", Name: "ยกศีรษะ", DeviceName: models.None},
			{ID: 2, Aspect: models.AspectGM, AgeRange: "1-2", Name: "ยกอก", DeviceName: models.None},
		},
	})

	repo := storage.NewMemoryRepository()
	hub := api.NewHub()
	engine := progression.NewEngine(loader, repo, zap.NewNop(), progression.WithPublisher(hub))
	server := api.NewServer(config.ServerConfig{}, repo, engine, api.NewTokens("cli-test-secret-0123", time.Hour), hub, zap.NewNop())

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestCommandsAgainstStub(t *testing.T) {
	color.NoColor = true
	url := startStub(t)

	t.Setenv("DEKDEK_API_BASE_URL", url)
	t.Setenv("DEKDEK_STORE_BACKEND", "file")
	t.Setenv("DEKDEK_STORE_PATH", filepath.Join(t.TempDir(), "store.yaml"))
	t.Setenv("DEKDEK_LOG_LEVEL", "error")

	_, err := client.NewClient(url).Register(context.Background(), validation.RegisterForm{
		UserName:    "คุณแม่ใจดี",
		Email:       "mom@example.com",
		Password:    "password123",
		PhoneNumber: "0812345678",
		Role:        models.RoleParent,
	})
	require.NoError(t, err)

	execute(t, "login", "--email", "mom@example.com", "--password", "password123")

	out := execute(t, "whoami")
	assert.Contains(t, out, "mom@example.com")
	assert.Contains(t, out, "parent")

	birthday := time.Now().AddDate(0, -1, -3).Format("2006-01-02")
	execute(t, "children", "add", "--name", "เด็กหญิงใบเตย", "--nick", "เตย", "--birthday", birthday, "--gender", "female")

	out = execute(t, "children", "list")
	assert.Contains(t, out, "เตย")
	assert.Contains(t, out, "0 ปี 1 เดือน")

	out = execute(t, "dashboard")
	assert.Contains(t, out, "เตย")
	assert.Contains(t, out, "0/2")

	execute(t, "logout")
	rootCmd.SetArgs([]string{"whoami"})
	assert.ErrorIs(t, rootCmd.ExecuteContext(context.Background()), store.ErrNotLoggedIn)
}
