package models

import (
	"gorm.io/datatypes"
)

// WizardDraft holds the server-side state of one user's in-progress
// verification wizard. A user has at most one active draft; it survives
// failed submissions so entered data is never lost.
type WizardDraft struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Step int `gorm:"not null;default:1" json:"step"`

	PersonalInfo datatypes.JSON `json:"personal_info"`

	IDCardPath string `gorm:"type:text" json:"id_card_path"`
	IDCardName string `gorm:"type:varchar(255)" json:"id_card_name"`
	SelfiePath string `gorm:"type:text" json:"selfie_path"`
	SelfieName string `gorm:"type:varchar(255)" json:"selfie_name"`

	// Submitting guards against a duplicate submit while one is outstanding.
	Submitting bool `gorm:"default:false" json:"submitting"`
}
