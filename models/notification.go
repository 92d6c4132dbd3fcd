package models

import "time"

// AdminAudience is the reserved recipient id for admin-facing alerts.
// The dispatch worker routes these to the admin channel of the push
// service instead of a user device.
const AdminAudience = "admin"

// NotificationType tags what a notification is about
type NotificationType string

const (
	NotifyApplicationReceived NotificationType = "application_received"
	NotifyApplicationAccepted NotificationType = "application_accepted"
	NotifyApplicationRejected NotificationType = "application_rejected"
	NotifyAddressSubmitted    NotificationType = "address_submitted"
	NotifyMatchApproved       NotificationType = "match_approved"
	NotifyMatchRejected       NotificationType = "match_rejected"
	NotifyLetterSent          NotificationType = "letter_sent"
	NotifyLetterReceived      NotificationType = "letter_received"
	NotifyLetterReminder      NotificationType = "letter_reminder"
	NotifyLetterAutoVerified  NotificationType = "letter_auto_verified"
	NotifyLetterDisputed      NotificationType = "letter_disputed"
	NotifyDisputeResolved     NotificationType = "dispute_resolved"
	NotifyCancelRequested     NotificationType = "cancel_requested"
	NotifyCancelApproved      NotificationType = "cancel_approved"
	NotifyCancelRejected      NotificationType = "cancel_rejected"
	NotifyAdminAlert          NotificationType = "admin_alert"
)

// Notification is a write-only row for the push dispatch worker. State
// transitions persist these best-effort after commit; a failed write is
// logged and never rolls back the transition that produced it.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string           `gorm:"index;not null" json:"user_id"`
	Type        NotificationType `gorm:"type:varchar(40);not null" json:"type"`
	Title       string           `gorm:"not null" json:"title"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Link        string           `json:"link,omitempty"`
	Delivered   bool             `gorm:"not null;default:false;index" json:"delivered"`
	DeliveredAt *time.Time       `json:"delivered_at,omitempty"`

	Timestamps
}
