package models

import "time"

// DeadlineReminder is the message published by the reminder scheduler for
// every deadline due tomorrow, consumed by the notification sender.
type DeadlineReminder struct {
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	Title       string    `json:"title"`
	MatterTitle string    `json:"matter_title"`
	DueDate     time.Time `json:"due_date"`
}

// WelcomeNotification is built after a completed checkout and queued for
// the notification sender.
type WelcomeNotification struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Plan     string `json:"plan"`
}
