package children

import (
	"context"
	"time"

	"github.com/dekdek-app/dekdek/internal/age"
	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// RoomBackend is the part of the API client the room service needs
type RoomBackend interface {
	ListRooms(ctx context.Context, supervisorID int) ([]*models.Room, error)
	CreateRoom(ctx context.Context, form validation.RoomForm) (*models.Room, error)
	RoomChildren(ctx context.Context, roomID int) ([]*models.Child, error)
	AssignChild(ctx context.Context, roomID, childID int) error
	UnassignChild(ctx context.Context, roomID, childID int) error
}

// RoomService lets a supervisor organise children into rooms
type RoomService struct {
	backend RoomBackend
	now     func() time.Time
}

// NewRoomService creates a room service
func NewRoomService(backend RoomBackend) *RoomService {
	return &RoomService{backend: backend, now: time.Now}
}

// List returns a supervisor's rooms
func (s *RoomService) List(ctx context.Context, supervisorID int) ([]*models.Room, error) {
	return s.backend.ListRooms(ctx, supervisorID)
}

// Create validates and creates a room
func (s *RoomService) Create(ctx context.Context, form validation.RoomForm) (*models.Room, error) {
	if err := validation.Struct(form); err != nil {
		return nil, err
	}
	return s.backend.CreateRoom(ctx, form)
}

// Children returns a room's children with a fresh age display
func (s *RoomService) Children(ctx context.Context, roomID int) ([]*models.Child, error) {
	list, err := s.backend.RoomChildren(ctx, roomID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	for _, c := range list {
		c.Age = age.Display(c.Birthday, today)
	}
	return list, nil
}

// Assign adds a child to a room
func (s *RoomService) Assign(ctx context.Context, roomID, childID int) error {
	if err := validation.Struct(validation.RoomChildForm{RoomID: roomID, ChildID: childID}); err != nil {
		return err
	}
	return s.backend.AssignChild(ctx, roomID, childID)
}

// Unassign removes a child from a room
func (s *RoomService) Unassign(ctx context.Context, roomID, childID int) error {
	return s.backend.UnassignChild(ctx, roomID, childID)
}
