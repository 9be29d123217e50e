package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Server) authResult(w http.ResponseWriter, r *http.Request, status int, message string, user *models.User) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		s.respondInternal(w, r, err, "failed to issue token")
		return
	}
	respondJSON(w, status, message, models.AuthResult{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form validation.LoginForm
	if !decodeForm(w, r, &form) {
		return
	}

	user, err := s.repo.GetUserByEmail(r.Context(), strings.TrimSpace(form.Email))
	if err != nil {
		s.respondInternal(w, r, err, "failed to get user")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
		s.logger.Info("login failed", zap.String("email", form.Email))
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.authResult(w, r, http.StatusOK, "login successful", user)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form validation.RegisterForm
	if !decodeForm(w, r, &form) {
		return
	}

	if form.Role == models.RoleAdmin {
		respondError(w, http.StatusForbidden, "admin accounts cannot self-register")
		return
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		s.respondInternal(w, r, err, "failed to hash password")
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(form.UserName),
		Email:        strings.TrimSpace(form.Email),
		PhoneNumber:  form.PhoneNumber,
		Role:         form.Role,
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		s.respondInternal(w, r, err, "failed to create user")
		return
	}

	s.logger.Info("user registered", zap.Int("user", user.ID), zap.String("role", string(user.Role)))
	s.authResult(w, r, http.StatusCreated, "register successful", user)
}

// handleLogout acknowledges the logout. Tokens are stateless, the client drops its copy.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if user := UserFromContext(r.Context()); user != nil {
		s.logger.Info("user logged out", zap.Int("user", user.ID))
	}
	respondJSON(w, http.StatusOK, "logout successful", nil)
}
