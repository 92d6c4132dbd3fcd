package models

import "time"

// ProofStatus is the delivery state of one mission step's letter
type ProofStatus string

const (
	ProofStatusSent         ProofStatus = "sent"
	ProofStatusReceived     ProofStatus = "received"
	ProofStatusDisputed     ProofStatus = "disputed"
	ProofStatusAutoVerified ProofStatus = "auto_verified"
	ProofStatusCancelled    ProofStatus = "cancelled"
)

// EscalationState is the sweep's per-proof progress marker. It advances
// monotonically, which makes repeated sweeps idempotent without comparing
// three nullable timestamps.
type EscalationState string

const (
	EscalationNone          EscalationState = "none"
	EscalationReminded      EscalationState = "reminded"
	EscalationAdminNotified EscalationState = "admin_notified"
	EscalationResolved      EscalationState = "resolved"
)

var escalationRank = map[EscalationState]int{
	EscalationNone:          0,
	EscalationReminded:      1,
	EscalationAdminNotified: 2,
	EscalationResolved:      3,
}

// Rank orders escalation states for monotonic advancement checks.
func (e EscalationState) Rank() int {
	return escalationRank[e]
}

// LetterProof is the physical-letter evidence for one mission step.
// The escalation timestamps are audit fields set together with the
// EscalationState advance; each is written at most once.
type LetterProof struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	MatchID      string `gorm:"index;not null" json:"match_id"`
	Step         int    `gorm:"not null" json:"step"`
	SenderID     string `gorm:"index;not null" json:"sender_id"`
	SenderName   string `gorm:"not null" json:"sender_name"`
	ReceiverID   string `gorm:"index;not null" json:"receiver_id"`
	ReceiverName string `gorm:"not null" json:"receiver_name"`

	SenderImageURL     string     `gorm:"type:text;not null" json:"sender_image_url"`
	SenderUploadedAt   time.Time  `gorm:"not null" json:"sender_uploaded_at"`
	ReceiverImageURL   *string    `gorm:"type:text" json:"receiver_image_url,omitempty"`
	ReceiverUploadedAt *time.Time `json:"receiver_uploaded_at,omitempty"`

	Status        ProofStatus     `gorm:"type:varchar(20);not null;default:'sent';index" json:"status"`
	DisputeReason string          `gorm:"type:text" json:"dispute_reason,omitempty"`
	Escalation    EscalationState `gorm:"type:varchar(20);not null;default:'none';index" json:"escalation"`

	ReminderSentAt  *time.Time `json:"reminder_sent_at,omitempty"`
	AdminNotifiedAt *time.Time `json:"admin_notified_at,omitempty"`
	AutoVerifiedAt  *time.Time `json:"auto_verified_at,omitempty"`

	Timestamps
}
