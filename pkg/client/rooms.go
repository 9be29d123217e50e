package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// ListRooms returns the rooms of a supervisor
func (c *Client) ListRooms(ctx context.Context, supervisorID int) ([]*models.Room, error) {
	var rooms []*models.Room
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/get-rooms/%d", supervisorID), nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// CreateRoom creates a room
func (c *Client) CreateRoom(ctx context.Context, form validation.RoomForm) (*models.Room, error) {
	var room models.Room
	if err := c.call(ctx, http.MethodPost, "/api/rooms/add-room", form, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomChildren returns the children assigned to a room
func (c *Client) RoomChildren(ctx context.Context, roomID int) ([]*models.Child, error) {
	var children []*models.Child
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/get-children/%d", roomID), nil, &children); err != nil {
		return nil, err
	}
	return children, nil
}

// AssignChild adds a child to a room
func (c *Client) AssignChild(ctx context.Context, roomID, childID int) error {
	form := validation.RoomChildForm{RoomID: roomID, ChildID: childID}
	return c.call(ctx, http.MethodPost, "/api/rooms/add-child-to-room", form, nil)
}

// UnassignChild removes a child from a room
func (c *Client) UnassignChild(ctx context.Context, roomID, childID int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/rooms/remove-child/%d/%d", roomID, childID), nil, nil)
}
