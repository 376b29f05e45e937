package wizard

import (
	"errors"
	"strings"
)

// Step identifies a stage of the verification wizard.
type Step int

const (
	// StepPersonalInfo collects the applicant's identity details.
	StepPersonalInfo Step = 1
	// StepDocuments collects the ID card and selfie uploads.
	StepDocuments Step = 2
	// StepReview shows the collected data before submission.
	StepReview Step = 3
)

// String returns a stable machine name for the step.
func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepDocuments:
		return "documents"
	case StepReview:
		return "review"
	default:
		return "unknown"
	}
}

// Valid reports whether the step is one of the wizard's three stages.
func (s Step) Valid() bool {
	return s >= StepPersonalInfo && s <= StepReview
}

// Guard violations returned by Advance.
var (
	ErrPersonalInfoIncomplete = errors.New("wizard: personal information is incomplete")
	ErrDocumentsMissing       = errors.New("wizard: both documents are required")
	ErrAlreadyAtReview        = errors.New("wizard: already at the review step")
)

// PersonalInfo holds the free-form identity fields collected in step one.
type PersonalInfo struct {
	FullName    string `json:"fullName"`
	DateOfBirth string `json:"dateOfBirth"`
	Nationality string `json:"nationality"`
	Address     string `json:"address"`
}

// Complete reports whether every field carries a non-blank value.
func (p PersonalInfo) Complete() bool {
	return strings.TrimSpace(p.FullName) != "" &&
		strings.TrimSpace(p.DateOfBirth) != "" &&
		strings.TrimSpace(p.Nationality) != "" &&
		strings.TrimSpace(p.Address) != ""
}

// State is a snapshot of wizard progress. It is a pure value; persistence and
// rendering live elsewhere.
type State struct {
	Step         Step
	PersonalInfo PersonalInfo
	HasIDCard    bool
	HasSelfie    bool
}

// NewState returns a fresh wizard at the first step.
func NewState() State {
	return State{Step: StepPersonalInfo}
}

// CanAdvance reports whether the guard for the current step is satisfied.
func (s State) CanAdvance() bool {
	switch s.Step {
	case StepPersonalInfo:
		return s.PersonalInfo.Complete()
	case StepDocuments:
		return s.HasIDCard && s.HasSelfie
	default:
		return false
	}
}

// Advance validates the current step's guard and, on success, moves the state
// forward one step. The state is returned unchanged when the guard fails.
func (s *State) Advance() error {
	switch s.Step {
	case StepPersonalInfo:
		if !s.PersonalInfo.Complete() {
			return ErrPersonalInfoIncomplete
		}
	case StepDocuments:
		if !s.HasIDCard || !s.HasSelfie {
			return ErrDocumentsMissing
		}
	case StepReview:
		return ErrAlreadyAtReview
	}
	s.Step++
	return nil
}

// Back moves one step toward the start. Backward movement is never guarded so
// applicants can always revisit earlier input.
func (s *State) Back() {
	if s.Step > StepPersonalInfo {
		s.Step--
	}
}
