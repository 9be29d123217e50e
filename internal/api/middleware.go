package api

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	tokens *Tokens
	repo   storage.Repository
	logger *zap.Logger
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(tokens *Tokens, repo storage.Repository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, repo: repo, logger: logger}
}

// Authenticate verifies the token from the Authorization header. Websocket
// clients cannot set headers, so a token query parameter is accepted too.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := m.tokens.Parse(token)
		if err != nil {
			m.logger.Debug("rejected token", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		// the account may have been removed since the token was issued
		user, err := m.repo.GetUser(r.Context(), userID)
		if err != nil {
			m.logger.Error("failed to lookup user", zap.Error(err), zap.Int("user", userID))
			respondError(w, http.StatusInternalServerError, "authentication error")
			return
		}
		if user == nil {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		ctx := ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole returns middleware that admits only the given roles
func (m *AuthMiddleware) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.logger.Warn("role denied",
				zap.Int("user", user.ID),
				zap.String("role", string(user.Role)),
				zap.String("path", r.URL.Path),
			)
			respondError(w, http.StatusForbidden, "permission denied")
		})
	}
}

// extractToken reads "Bearer <token>" or the token query parameter
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
