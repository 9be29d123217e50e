// Package notifications registers this device for pushes and delivers a
// user's notifications live, over the stream when it can and by polling
// when it cannot.
package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// Backend is the part of the API client this package needs
type Backend interface {
	RegisterDeviceToken(ctx context.Context, form validation.DeviceTokenForm) error
	ListNotifications(ctx context.Context, userID int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	StreamNotifications(ctx context.Context, userID int, handle func(*models.Notification)) error
}

// InstallationID returns this device's id, creating and storing one on first use
func InstallationID(ctx context.Context, s store.Store) (string, error) {
	id, ok, err := s.Get(ctx, store.KeyInstallationID)
	if err != nil {
		return "", err
	}
	if ok && id != "" {
		return id, nil
	}

	id = uuid.New().String()
	if err := s.Set(ctx, store.KeyInstallationID, id); err != nil {
		return "", fmt.Errorf("failed to store installation id: %w", err)
	}
	return id, nil
}

// Register sends the push token for this device
func Register(ctx context.Context, backend Backend, s store.Store, userID int, pushToken string) error {
	installation, err := InstallationID(ctx, s)
	if err != nil {
		return err
	}

	form := validation.DeviceTokenForm{UserID: userID, Token: pushToken, InstallationID: installation}
	if err := validation.Struct(form); err != nil {
		return err
	}
	return backend.RegisterDeviceToken(ctx, form)
}

// seenSet remembers delivered notification ids
type seenSet struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newSeenSet() *seenSet {
	return &seenSet{ids: make(map[string]bool)}
}

// add reports whether id was new
func (s *seenSet) add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[id] {
		return false
	}
	s.ids[id] = true
	return true
}

// Poller lists a user's notifications on an interval and emits the unread
// ones it has not emitted before
type Poller struct {
	backend  Backend
	userID   int
	interval time.Duration
	logger   *zap.Logger
	seen     *seenSet
}

// NewPoller creates a poller
func NewPoller(backend Backend, userID int, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		backend:  backend,
		userID:   userID,
		interval: interval,
		logger:   logger,
		seen:     newSeenSet(),
	}
}

// Run polls until ctx is done
func (p *Poller) Run(ctx context.Context, emit func(*models.Notification)) {
	p.logger.Debug("notification poller started", zap.Int("user", p.userID), zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx, emit)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("notification poller stopped", zap.Int("user", p.userID))
			return
		case <-ticker.C:
			p.poll(ctx, emit)
		}
	}
}

func (p *Poller) poll(ctx context.Context, emit func(*models.Notification)) {
	list, err := p.backend.ListNotifications(ctx, p.userID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("failed to poll notifications", zap.Error(err))
		}
		return
	}

	// oldest first so they are emitted in order
	for i := len(list) - 1; i >= 0; i-- {
		n := list[i]
		if n.IsRead || !p.seen.add(n.ID) {
			continue
		}
		emit(n)
	}
}

// Watch delivers notifications until ctx is done. It uses the live stream and
// falls back to polling when the stream cannot be opened or drops.
func Watch(ctx context.Context, backend Backend, userID int, interval time.Duration, logger *zap.Logger, emit func(*models.Notification)) {
	poller := NewPoller(backend, userID, interval, logger)

	err := backend.StreamNotifications(ctx, userID, func(n *models.Notification) {
		if poller.seen.add(n.ID) {
			emit(n)
		}
	})
	if ctx.Err() != nil {
		return
	}

	logger.Info("notification stream unavailable, polling instead", zap.Error(err))
	poller.Run(ctx, emit)
}
