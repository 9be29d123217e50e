package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// ListChildren returns the children of a parent
func (c *Client) ListChildren(ctx context.Context, parentID int) ([]*models.Child, error) {
	var children []*models.Child
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/childs/get-child/%d", parentID), nil, &children); err != nil {
		return nil, err
	}
	return children, nil
}

// AddChild creates a child profile
func (c *Client) AddChild(ctx context.Context, form validation.ChildForm) (*models.Child, error) {
	var child models.Child
	if err := c.call(ctx, http.MethodPost, "/api/childs/add-child", form, &child); err != nil {
		return nil, err
	}
	return &child, nil
}

// UpdateChild replaces a child profile
func (c *Client) UpdateChild(ctx context.Context, childID int, form validation.ChildForm) (*models.Child, error) {
	var child models.Child
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/childs/update-child/%d", childID), form, &child); err != nil {
		return nil, err
	}
	return &child, nil
}

// DeleteChild removes a child profile
func (c *Client) DeleteChild(ctx context.Context, childID int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/childs/delete-child/%d", childID), nil, nil)
}
