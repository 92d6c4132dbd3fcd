package models

// ParentAddress is one side's disclosed mailing address for a match.
// Written once on submission and never mutated; the counterpart may read
// it only after the owning match reaches completed.
type ParentAddress struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string `gorm:"uniqueIndex:idx_address_user_match;not null" json:"user_id"`
	MatchID    string `gorm:"uniqueIndex:idx_address_user_match;not null" json:"match_id"`
	ParentName string `gorm:"not null" json:"parent_name"`
	Phone      string `gorm:"type:varchar(32)" json:"phone"`
	Postcode   string `gorm:"type:varchar(16)" json:"postcode"`
	Address1   string `gorm:"not null" json:"address1"`
	Address2   string `json:"address2"`
	Consent    bool   `gorm:"not null;default:false" json:"consent"`

	Timestamps
}
