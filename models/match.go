package models

import "time"

// MatchStatus is the lifecycle state of a pen-pal match
type MatchStatus string

const (
	MatchStatusAddressPending MatchStatus = "address_pending"
	MatchStatusAdminReview    MatchStatus = "admin_review"
	MatchStatusCompleted      MatchStatus = "completed"
	MatchStatusCancelled      MatchStatus = "cancelled"
)

// PenpalMatch is the bidirectional relationship between two users' children.
// It is read-modify-written by both participants, the admin and the sweep,
// so every writer re-checks current state with a conditional update instead
// of trusting what it last observed.
type PenpalMatch struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID string `gorm:"index" json:"profile_id,omitempty"` // recruiting profile this match consumed
	User1ID   string `gorm:"index;not null" json:"user1_id"`
	User1Name string `gorm:"not null" json:"user1_name"`
	User2ID   string `gorm:"index;not null" json:"user2_id"`
	User2Name string `gorm:"not null" json:"user2_name"`

	User1AddressSubmitted bool `gorm:"not null;default:false" json:"user1_address_submitted"`
	User2AddressSubmitted bool `gorm:"not null;default:false" json:"user2_address_submitted"`

	Status MatchStatus `gorm:"type:varchar(20);not null;default:'address_pending';index" json:"status"`

	ApprovedAt   *time.Time `json:"approved_at,omitempty"`
	RejectedAt   *time.Time `json:"rejected_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	RejectReason string     `gorm:"type:text" json:"reject_reason,omitempty"`
	CancelReason string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty"` // user id of the initiator, empty for admin rejection

	Timestamps
}

// HasParticipant reports whether userID is one of the two sides.
func (m *PenpalMatch) HasParticipant(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// PartnerOf returns the other side's user id, or "" if userID is not a participant.
func (m *PenpalMatch) PartnerOf(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User2ID
	case m.User2ID:
		return m.User1ID
	}
	return ""
}

// PartnerNameOf returns the other side's display name.
func (m *PenpalMatch) PartnerNameOf(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User2Name
	case m.User2ID:
		return m.User1Name
	}
	return ""
}

// IsTerminal reports whether the match can no longer change state.
// Completed matches are not terminal: they can still be cancelled
// through arbitration.
func (m *PenpalMatch) IsTerminal() bool {
	return m.Status == MatchStatusCancelled
}
