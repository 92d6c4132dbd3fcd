package models

import "time"

// CancelRequestStatus is the arbitration state of a cancellation request
type CancelRequestStatus string

const (
	CancelRequestPending  CancelRequestStatus = "pending"
	CancelRequestApproved CancelRequestStatus = "approved"
	CancelRequestRejected CancelRequestStatus = "rejected"
)

// PenpalCancelRequest asks the admin to terminate a match. Either party
// may file one; only admin action resolves it. There is no expiry — a
// pending request waits indefinitely and the admin queue surfaces its age.
type PenpalCancelRequest struct {
	ID            string              `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID       string              `gorm:"index;uniqueIndex:idx_cancel_pending,where:status = 'pending';not null" json:"match_id"`
	RequesterID   string              `gorm:"index;not null" json:"requester_id"`
	RequesterName string              `gorm:"not null" json:"requester_name"`
	PartnerID     string              `gorm:"index;not null" json:"partner_id"`
	PartnerName   string              `gorm:"not null" json:"partner_name"`
	Reason        string              `gorm:"type:text;not null" json:"reason"`
	Status        CancelRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNote     string              `gorm:"type:text" json:"admin_note,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`

	Timestamps
}
