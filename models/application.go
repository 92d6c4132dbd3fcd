package models

// ApplicationStatus is the state of an application against a profile
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// PenpalApplication is a request from an applicant to a profile owner.
// Terminal once accepted or rejected; accepting one application rejects
// its pending siblings on the same profile in the same transaction.
type PenpalApplication struct {
	ID            string            `gorm:"primaryKey;type:uuid" json:"id"`
	ProfileID     string            `gorm:"index;not null" json:"profile_id"`
	ApplicantID   string            `gorm:"index;not null" json:"applicant_id"`
	ApplicantName string            `gorm:"not null" json:"applicant_name"`
	Status        ApplicationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Profile PenpalProfile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`

	Timestamps
}
