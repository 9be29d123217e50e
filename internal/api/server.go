// Package api is the reference HTTP backend the DekDek client talks to.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/progression"
	"github.com/dekdek-app/dekdek/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	repo           storage.Repository
	engine         progression.Engine
	tokens         *Tokens
	hub            *Hub
	authMiddleware *AuthMiddleware
	logger         *zap.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo storage.Repository,
	engine progression.Engine,
	tokens *Tokens,
	hub *Hub,
	logger *zap.Logger,
) *Server {
	s := &Server{
		config:         cfg,
		repo:           repo,
		engine:         engine,
		tokens:         tokens,
		hub:            hub,
		authMiddleware: NewAuthMiddleware(tokens, repo, logger),
		logger:         logger,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Notification stream is long-lived, so it sits outside the timeout group
	r.With(s.authMiddleware.Authenticate).Get("/api/notifications/stream/{userId}", s.handleNotificationStream)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Health check (public)
		r.Get("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Route("/api", func(r chi.Router) {
			r.Post("/auth/login", s.handleLogin)
			r.Post("/auth/register", s.handleRegister)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware.Authenticate)
				supervisorOnly := s.authMiddleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)

				r.Post("/auth/logout", s.handleLogout)

				r.Route("/childs", func(r chi.Router) {
					r.Get("/get-child/{parentId}", s.handleListChildren)
					r.Post("/add-child", s.handleAddChild)
					r.Put("/update-child/{childId}", s.handleUpdateChild)
					r.Delete("/delete-child/{childId}", s.handleDeleteChild)
				})

				r.Route("/rooms", func(r chi.Router) {
					r.Use(supervisorOnly)
					r.Get("/get-rooms/{supervisorId}", s.handleListRooms)
					r.Post("/add-room", s.handleCreateRoom)
					r.Get("/get-children/{roomId}", s.handleRoomChildren)
					r.Post("/add-child-to-room", s.handleAssignChild)
					r.Delete("/remove-child/{roomId}/{childId}", s.handleUnassignChild)
				})

				r.Route("/assessments", func(r chi.Router) {
					r.Get("/assessments-get-details/{childId}/{aspect}/{raterId}/{ageMonths}", s.handleDetails(false))
					r.Post("/assessments-next/{childId}/{aspect}", s.handleNext(false))
					r.Get("/assessments-progress/{childId}", s.handleProgress)

					r.Group(func(r chi.Router) {
						r.Use(supervisorOnly)
						r.Get("/assessments-get-details-supervisor/{childId}/{aspect}/{raterId}/{ageMonths}", s.handleDetails(true))
						r.Post("/assessments-next-supervisor/{childId}/{aspect}", s.handleNext(true))
						r.Post("/assessments-not-passed-supervisor/{childId}/{aspect}", s.handleNotPassed)
					})
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Post("/register-token", s.handleRegisterToken)
					r.Get("/get-notifications/{userId}", s.handleListNotifications)
					r.Put("/mark-read/{notificationId}", s.handleMarkRead)
				})

				r.Route("/profiles", func(r chi.Router) {
					r.Get("/get-profile/{userId}", s.handleGetProfile)
					r.Put("/update-profile/{userId}", s.handleUpdateProfile)
					r.With(s.authMiddleware.RequireRole(models.RoleAdmin)).Get("/list-users", s.handleListUsers)
				})
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using zap
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
