package domain

import "time"

// NotificationCategoryJobStatus tags notifications produced by status transitions
const NotificationCategoryJobStatus = "job_status"

// Notification is a per-recipient message. ReadAt is the only mutable field
// and only ever moves from nil to a timestamp.
type Notification struct {
	ID          int64      `json:"id"`
	RecipientID int64      `json:"recipient_id"`
	JobID       *int64     `json:"job_id,omitempty"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	Category    string     `json:"category"`
	Link        string     `json:"link"`
	ReadAt      *time.Time `json:"read_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Read reports whether the notification has been read
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}
