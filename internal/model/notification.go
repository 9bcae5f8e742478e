package model

import "time"

// Notification kinds.
const (
	NotificationUser  = "user"
	NotificationAdmin = "admin"
)

// Notification is an in-app message stored in a user's inbox.
type Notification struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
