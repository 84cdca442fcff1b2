package models

import "time"

type Profile struct {
	ID                   string    `json:"id"`
	City                 string    `json:"city,omitempty"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	UpdatedAt            time.Time `json:"updated_at"`
}
