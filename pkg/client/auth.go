package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// Login exchanges credentials for a token
func (c *Client) Login(ctx context.Context, form validation.LoginForm) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", form, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || res.User == nil {
		return nil, fmt.Errorf("%w: login response without token or user", ErrMalformedResponse)
	}
	return &res, nil
}

// Register creates an account and signs it in
func (c *Client) Register(ctx context.Context, form validation.RegisterForm) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", form, &res); err != nil {
		return nil, err
	}
	if res.Token == "" || res.User == nil {
		return nil, fmt.Errorf("%w: register response without token or user", ErrMalformedResponse)
	}
	return &res, nil
}

// Logout tells the backend the token is no longer in use
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}
