package models

import "time"

// NotificationType identifies what event produced the notification.
type NotificationType string

const (
	NotificationTestUnlocked    NotificationType = "test_unlocked"
	NotificationResultPublished NotificationType = "result_published"
)

// Notification is a per-user inbox entry fanned out by the notification
// worker when a paper goes active or its results are revealed.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	TenantID  string           `db:"tenant_id" json:"tenantId"`
	UserID    string           `db:"user_id" json:"userId"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Body      string           `db:"body" json:"body"`
	EntityID  *string          `db:"entity_id" json:"entityId,omitempty"`
	Read      bool             `db:"read" json:"read"`
	CreatedAt time.Time        `db:"created_at" json:"createdAt"`
}

// NotificationFilter constrains inbox queries.
type NotificationFilter struct {
	TenantID   string
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
