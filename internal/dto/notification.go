package dto

// NotificationQuery constrains inbox listing.
type NotificationQuery struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}
