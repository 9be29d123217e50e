// Package account signs users in and out and keeps their identity in the
// injected key-value store.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// ErrSessionExpired is returned when the stored token is past its expiry
var ErrSessionExpired = errors.New("session expired, please log in again")

// Backend is the part of the API client the account service needs
type Backend interface {
	Login(ctx context.Context, form validation.LoginForm) (*models.AuthResult, error)
	Register(ctx context.Context, form validation.RegisterForm) (*models.AuthResult, error)
	Logout(ctx context.Context) error
}

// Service manages the signed-in identity
type Service struct {
	backend Backend
	store   store.Store
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an account service
func NewService(backend Backend, s store.Store, logger *zap.Logger) *Service {
	return &Service{
		backend: backend,
		store:   s,
		logger:  logger,
		now:     time.Now,
	}
}

// Login authenticates and persists the identity
func (s *Service) Login(ctx context.Context, form validation.LoginForm) (*store.Identity, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	res, err := s.backend.Login(ctx, form)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, res)
}

// Register creates an account and persists its identity
func (s *Service) Register(ctx context.Context, form validation.RegisterForm) (*store.Identity, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	res, err := s.backend.Register(ctx, form)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, res)
}

func (s *Service) persist(ctx context.Context, res *models.AuthResult) (*store.Identity, error) {
	id := store.IdentityFromAuth(res)
	if err := store.SaveIdentity(ctx, s.store, id); err != nil {
		return nil, fmt.Errorf("failed to save identity: %w", err)
	}

	s.logger.Info("signed in", zap.Int("user", id.UserID), zap.String("role", string(id.Role)))
	return &id, nil
}

// Logout tells the backend and clears the stored identity. The local
// identity is cleared even when the backend cannot be reached.
func (s *Service) Logout(ctx context.Context) error {
	if _, err := store.LoadIdentity(ctx, s.store); errors.Is(err, store.ErrNotLoggedIn) {
		return nil
	}

	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed", zap.Error(err))
	}

	if err := store.ClearIdentity(ctx, s.store); err != nil {
		return fmt.Errorf("failed to clear identity: %w", err)
	}
	return nil
}

// Current returns the stored identity
func (s *Service) Current(ctx context.Context) (*store.Identity, error) {
	return store.LoadIdentity(ctx, s.store)
}

// RequireFresh returns the stored identity unless its token has expired.
// The signature is not checked here; the backend does that.
func (s *Service) RequireFresh(ctx context.Context) (*store.Identity, error) {
	id, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(id.Token, &claims); err != nil {
		s.logger.Debug("stored token is not a JWT", zap.Error(err))
		return id, nil
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrSessionExpired
	}
	return id, nil
}

// SyncProfile rewrites the stored display fields after a profile update
func (s *Service) SyncProfile(ctx context.Context, u *models.User) error {
	return s.store.MultiSet(ctx, map[string]string{
		store.KeyUserName:    u.Name,
		store.KeyPhoneNumber: u.PhoneNumber,
		store.KeyProfilePic:  u.ProfilePic,
	})
}

// TokenSource reads the stored token before every request
func (s *Service) TokenSource() func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		token, _, err := s.store.Get(ctx, store.KeyToken)
		return token, err
	}
}
