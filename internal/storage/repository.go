package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dekdek-app/dekdek/internal/models"
)

var (
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound is returned by updates and deletes of missing records
	ErrNotFound = errors.New("record not found")
)

// Repository defines the interface for stub backend persistence.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Children
	CreateChild(ctx context.Context, c *models.Child) error
	GetChild(ctx context.Context, id int) (*models.Child, error)
	UpdateChild(ctx context.Context, c *models.Child) error
	DeleteChild(ctx context.Context, id int) error
	ListChildrenByParent(ctx context.Context, parentID int) ([]*models.Child, error)

	// Rooms
	CreateRoom(ctx context.Context, r *models.Room) error
	GetRoom(ctx context.Context, id int) (*models.Room, error)
	ListRoomsBySupervisor(ctx context.Context, supervisorID int) ([]*models.Room, error)
	AddChildToRoom(ctx context.Context, roomID, childID int) error
	RemoveChildFromRoom(ctx context.Context, roomID, childID int) error
	ListRoomChildren(ctx context.Context, roomID int) ([]*models.Child, error)
	SupervisorHasChild(ctx context.Context, supervisorID, childID int) (bool, error)

	// Attempts
	CreateAttempt(ctx context.Context, a *models.Attempt) error
	GetAttempt(ctx context.Context, id int) (*models.Attempt, error)
	GetLatestAttempt(ctx context.Context, childID int, aspect models.Aspect, supervisor bool) (*models.Attempt, error)
	UpdateAttempt(ctx context.Context, a *models.Attempt) error
	ListAttemptsByChild(ctx context.Context, childID int) ([]*models.Attempt, error)

	// Notifications
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, userID int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
	UpsertDeviceToken(ctx context.Context, t *models.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID int) ([]*models.DeviceToken, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
