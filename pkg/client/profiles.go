package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// GetProfile returns a user's profile
func (c *Client) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/profiles/get-profile/%d", userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes a user's display fields
func (c *Client) UpdateProfile(ctx context.Context, userID int, form validation.ProfileForm) (*models.User, error) {
	var user models.User
	if err := c.call(ctx, http.MethodPut, fmt.Sprintf("/api/profiles/update-profile/%d", userID), form, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := c.call(ctx, http.MethodGet, "/api/profiles/list-users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}
