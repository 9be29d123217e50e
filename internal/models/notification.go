package models

import "time"

// Notification is a message delivered to a user
type Notification struct {
	ID        string    `json:"notification_id"`
	UserID    int       `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// DeviceToken binds a push token to a user and installation
type DeviceToken struct {
	UserID         int       `json:"user_id"`
	Token          string    `json:"expo_push_token"`
	InstallationID string    `json:"installation_id"`
	UpdatedAt      time.Time `json:"updated_at"`
}
