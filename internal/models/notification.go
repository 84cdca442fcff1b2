package models

import "time"

// NotificationRecord is an inbox entry. Records are written whether or not
// the matching push delivery succeeded.
type NotificationRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
