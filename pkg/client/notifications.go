package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/dekdek-app/dekdek/internal/models"
	"github.com/dekdek-app/dekdek/internal/validation"
)

// RegisterDeviceToken forwards a push token to the backend
func (c *Client) RegisterDeviceToken(ctx context.Context, form validation.DeviceTokenForm) error {
	return c.call(ctx, http.MethodPost, "/api/notifications/register-token", form, nil)
}

// ListNotifications returns a user's notifications, newest first
func (c *Client) ListNotifications(ctx context.Context, userID int) ([]*models.Notification, error) {
	var list []*models.Notification
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/notifications/get-notifications/%d", userID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkNotificationRead flags a notification as read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodPut, "/api/notifications/mark-read/"+url.PathEscape(id), nil, nil)
}

// StreamNotifications opens the live notification stream and calls handle for
// every notification until ctx is done or the connection drops. It returns nil
// when ctx ends the stream.
func (c *Client) StreamNotifications(ctx context.Context, userID int, handle func(*models.Notification)) error {
	u, err := url.Parse(fmt.Sprintf("%s/api/notifications/stream/%d", c.baseURL, userID))
	if err != nil {
		return fmt.Errorf("failed to build stream url: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)

	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return fmt.Errorf("failed to get token: %w", err)
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: "stream rejected"}
		}
		return &NetworkError{Err: err}
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return &NetworkError{Err: err}
		}

		var n models.Notification
		if err := json.Unmarshal(message, &n); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		handle(&n)
	}
}
