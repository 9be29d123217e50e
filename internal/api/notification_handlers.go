package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/storage"
	"github.com/dekdek-app/dekdek/internal/validation"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleRegisterToken(w http.ResponseWriter, r *http.Request) {
	var form validation.DeviceTokenForm
	if !decodeForm(w, r, &form) {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), form.UserID) {
		return
	}

	err := s.repo.UpsertDeviceToken(r.Context(), &models.DeviceToken{
		UserID:         form.UserID,
		Token:          form.Token,
		InstallationID: form.InstallationID,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		s.respondInternal(w, r, err, "failed to register token")
		return
	}

	respondJSON(w, http.StatusOK, "token registered", nil)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), userID) {
		return
	}

	list, err := s.repo.ListNotifications(r.Context(), userID)
	if err != nil {
		s.respondInternal(w, r, err, "failed to list notifications")
		return
	}
	if list == nil {
		list = []*models.Notification{}
	}

	respondJSON(w, http.StatusOK, "success", list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationId")

	n, err := s.repo.GetNotification(r.Context(), id)
	if err != nil {
		s.respondInternal(w, r, err, "failed to get notification")
		return
	}
	if n == nil {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), n.UserID) {
		return
	}

	if err := s.repo.MarkNotificationRead(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "notification not found")
			return
		}
		s.respondInternal(w, r, err, "failed to mark notification")
		return
	}

	respondJSON(w, http.StatusOK, "notification read", nil)
}

// handleNotificationStream pushes a user's new notifications as JSON text frames
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if !sameUserOrAdmin(w, UserFromContext(r.Context()), userID) {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.hub.Subscribe(userID)
	defer unsubscribe()

	s.logger.Info("notification stream connected", zap.Int("user", userID))

	done := make(chan struct{})
	var wg sync.WaitGroup

	// Read side only services control frames and notices the close
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Debug("stream read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-done:
			break loop
		case n, ok := <-events:
			if !ok {
				break loop
			}
			if err := s.sendStreamMessage(conn, n); err != nil {
				break loop
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				break loop
			}
		}
	}

	conn.Close()
	wg.Wait()
	s.logger.Info("notification stream disconnected", zap.Int("user", userID))
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to marshal notification", zap.Error(err))
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("failed to send notification", zap.Error(err))
		return err
	}
	return nil
}
