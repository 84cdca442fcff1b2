package models

// StreakState is a user's daily-engagement record. It is only ever changed by
// the streak state machine.
type StreakState struct {
	Streak       int    `json:"streak"`
	LastActivity Date   `json:"last_activity_date"`
	Freezes      int    `json:"freezes"`
	Coins        int    `json:"coins"`
	History      []Date `json:"history"`
}
