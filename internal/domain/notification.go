package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification for display
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

// Notification is a transient message pushed to connected clients. It is never persisted.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewNotification creates a notification stamped with the current time
func NewNotification(message string, typ NotificationType) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}
}
