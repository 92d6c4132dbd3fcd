package models

// PenaltyType categorizes a reputation deduction
type PenaltyType string

const (
	PenaltyCancelRequest PenaltyType = "cancel_request"
	PenaltyLateResponse  PenaltyType = "late_response"
	PenaltyNoAddress     PenaltyType = "no_address"
)

// UserPenpalReputation is one user's trust record. Created lazily on the
// first scoring event, mutated only by scoring actions, never deleted.
// The score is clamped to [0,100] and starts at 100.
type UserPenpalReputation struct {
	ID                 string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID             string `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalMatches       int    `gorm:"not null;default:0" json:"total_matches"`
	CompletedMatches   int    `gorm:"not null;default:0" json:"completed_matches"`
	CancelledByUser    int    `gorm:"not null;default:0" json:"cancelled_by_user"`
	CancelledByPartner int    `gorm:"not null;default:0" json:"cancelled_by_partner"`
	ReputationScore    int    `gorm:"not null;default:100" json:"reputation_score"`

	Penalties []PenaltyRecord `gorm:"foreignKey:UserID;references:UserID" json:"penalties,omitempty"`

	Timestamps
}

// PenaltyRecord is one append-only entry in a user's penalty history.
type PenaltyRecord struct {
	ID       string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string      `gorm:"index;not null" json:"user_id"`
	MatchID  string      `gorm:"index" json:"match_id,omitempty"`
	Type     PenaltyType `gorm:"type:varchar(32);not null" json:"type"`
	Severity string      `gorm:"type:varchar(16);not null" json:"severity"`
	Points   int         `gorm:"not null" json:"points"` // points deducted, positive
	Reason   string      `gorm:"type:text" json:"reason"`

	Timestamps
}
