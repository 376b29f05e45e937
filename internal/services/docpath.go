package services

import (
	"encoding/json"
	"strings"

	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/wizard"
)

// SubmitterInfo is the normalised view of who filed a verification record.
type SubmitterInfo struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Address     string `json:"address,omitempty"`
	IDCardPath  string `json:"idCardPath,omitempty"`
	SelfiePath  string `json:"selfiePath,omitempty"`
}

// documentBlob mirrors the legacy payload stored in the document path column.
type documentBlob struct {
	PersonalInfo *wizard.PersonalInfo `json:"personalInfo"`
	IDCardPath   string               `json:"idCardPath"`
	SelfiePath   string               `json:"selfiePath"`
}

// RecoverSubmitterInfo extracts submitter details from a verification record.
// New records carry a structured submitter column; older rows only have the
// legacy document path blob, which over time has held a JSON object, a
// double-encoded JSON string, a bare submitter email, or a file path. Every
// shape must degrade to a usable value rather than an error.
func RecoverSubmitterInfo(record *models.VerificationRecord) SubmitterInfo {
	if record == nil {
		return SubmitterInfo{FullName: "Unknown"}
	}

	if len(record.SubmitterInfo) > 0 {
		var info SubmitterInfo
		if err := json.Unmarshal(record.SubmitterInfo, &info); err == nil && info.FullName != "" {
			return info
		}
	}

	if info, ok := parseDocumentBlob(record.DocumentPath); ok {
		return info
	}

	return SubmitterInfo{FullName: "Unknown"}
}

func parseDocumentBlob(raw string) (SubmitterInfo, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SubmitterInfo{}, false
	}

	if info, ok := decodeBlob([]byte(raw)); ok {
		return info, true
	}

	// Some legacy writers double-encoded the payload as a JSON string.
	var nested string
	if err := json.Unmarshal([]byte(raw), &nested); err == nil {
		if info, ok := decodeBlob([]byte(nested)); ok {
			return info, true
		}
	}

	// The oldest rows stored the submitter email directly in the column.
	if strings.Contains(raw, "@") {
		return SubmitterInfo{FullName: raw, Email: raw}, true
	}

	return SubmitterInfo{}, false
}

func decodeBlob(data []byte) (SubmitterInfo, bool) {
	var blob documentBlob
	if err := json.Unmarshal(data, &blob); err != nil || blob.PersonalInfo == nil {
		return SubmitterInfo{}, false
	}

	p := blob.PersonalInfo
	if strings.TrimSpace(p.FullName) == "" {
		return SubmitterInfo{}, false
	}

	return SubmitterInfo{
		FullName:    strings.TrimSpace(p.FullName),
		DateOfBirth: strings.TrimSpace(p.DateOfBirth),
		Nationality: strings.TrimSpace(p.Nationality),
		Address:     strings.TrimSpace(p.Address),
		IDCardPath:  blob.IDCardPath,
		SelfiePath:  blob.SelfiePath,
	}, true
}
