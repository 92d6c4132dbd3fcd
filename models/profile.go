package models

// ProfileStatus is the recruitment state of a pen-pal profile
type ProfileStatus string

const (
	ProfileStatusRecruiting ProfileStatus = "recruiting"
	ProfileStatusMatched    ProfileStatus = "matched"
)

// PenpalProfile is one child's open recruitment post. At most one
// recruiting profile may exist per child; a new record is created for
// each recruitment round.
type PenpalProfile struct {
	ID             string        `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string        `gorm:"index;not null" json:"user_id"`
	ChildID        string        `gorm:"index;uniqueIndex:idx_child_recruiting,where:status = 'recruiting';not null" json:"child_id"`
	ChildName      string        `gorm:"not null" json:"child_name"`
	Age            int           `json:"age"`
	EnglishLevel   string        `gorm:"type:varchar(32)" json:"english_level"`
	Introduction   string        `gorm:"type:text" json:"introduction"`
	CharacterStamp string        `gorm:"type:varchar(64)" json:"character_stamp"`
	Slug           string        `gorm:"index" json:"slug"` // shareable link fragment from the child name
	Status         ProfileStatus `gorm:"type:varchar(20);not null;default:'recruiting';index" json:"status"`

	Timestamps
}
