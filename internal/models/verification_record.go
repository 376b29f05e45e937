package models

import (
	"gorm.io/datatypes"

	"github.com/trustweave/portal/internal/status"
)

// VerificationRecord is the stored outcome of one identity submission.
//
// DocumentPath is a legacy text blob: older clients wrote a JSON document,
// a bare email, or free text into it, so readers must parse it defensively.
// New submissions also populate SubmitterInfo with the normalised
// personal-info sub-record, which readers prefer when present.
type VerificationRecord struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Status status.Status `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	DocumentHash  string `gorm:"type:text;not null" json:"document_hash"`
	DocumentPath  string `gorm:"type:text" json:"document_path"`
	WalletAddress string `gorm:"type:varchar(64)" json:"wallet_address"`
	Signature     string `gorm:"type:text" json:"signature"`

	SubmitterInfo datatypes.JSON `json:"submitter_info,omitempty"`
}
