package status

import "strings"

// Status enumerates the lifecycle states of a verification record.
type Status string

const (
	Pending  Status = "pending"
	Verified Status = "verified"
	Rejected Status = "rejected"
)

// Display carries the presentation metadata for a status badge.
type Display struct {
	Label      string `json:"label"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Icon       string `json:"icon"`
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Pending, Verified, Rejected:
		return true
	}
	return false
}

// Terminal reports whether an admin has already decided this record.
func (s Status) Terminal() bool {
	return s == Verified || s == Rejected
}

// Parse normalises a raw status string. Unknown values map to Pending so a
// record is never created in a decided state by accident.
func Parse(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case Verified:
		return Verified
	case Rejected:
		return Rejected
	default:
		return Pending
	}
}

// ForDisplay maps a status to its badge metadata. The rejected branch doubles
// as the fallback for anything unrecognised.
func ForDisplay(s Status) Display {
	switch s {
	case Verified:
		return Display{
			Label:      "Verified",
			Background: "green-100",
			Text:       "green-700",
			Icon:       "check-circle",
		}
	case Pending:
		return Display{
			Label:      "Pending",
			Background: "amber-100",
			Text:       "amber-700",
			Icon:       "clock",
		}
	default:
		return Display{
			Label:      "Rejected",
			Background: "red-100",
			Text:       "red-700",
			Icon:       "alert-triangle",
		}
	}
}
