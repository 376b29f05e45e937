package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func completeInfo() PersonalInfo {
	return PersonalInfo{
		FullName:    "Jane Doe",
		DateOfBirth: "1990-04-12",
		Nationality: "Portuguese",
		Address:     "1 Main St",
	}
}

func TestAdvanceBlockedWithoutPersonalInfo(t *testing.T) {
	s := NewState()
	require.ErrorIs(t, s.Advance(), ErrPersonalInfoIncomplete)
	require.Equal(t, StepPersonalInfo, s.Step)

	// A single blank field still blocks.
	s.PersonalInfo = completeInfo()
	s.PersonalInfo.Nationality = "   "
	require.ErrorIs(t, s.Advance(), ErrPersonalInfoIncomplete)
	require.Equal(t, StepPersonalInfo, s.Step)
}

func TestAdvanceBlockedWithoutBothDocuments(t *testing.T) {
	s := State{Step: StepDocuments, PersonalInfo: completeInfo()}

	require.ErrorIs(t, s.Advance(), ErrDocumentsMissing)

	s.HasIDCard = true
	require.ErrorIs(t, s.Advance(), ErrDocumentsMissing)
	require.Equal(t, StepDocuments, s.Step)

	s.HasSelfie = true
	require.NoError(t, s.Advance())
	require.Equal(t, StepReview, s.Step)
}

func TestAdvanceStopsAtReview(t *testing.T) {
	s := State{Step: StepReview, PersonalInfo: completeInfo(), HasIDCard: true, HasSelfie: true}
	require.ErrorIs(t, s.Advance(), ErrAlreadyAtReview)
	require.Equal(t, StepReview, s.Step)
}

func TestFullForwardWalk(t *testing.T) {
	s := NewState()
	s.PersonalInfo = completeInfo()
	require.NoError(t, s.Advance())
	require.Equal(t, StepDocuments, s.Step)

	s.HasIDCard = true
	s.HasSelfie = true
	require.NoError(t, s.Advance())
	require.Equal(t, StepReview, s.Step)
}

func TestBackIsNeverGuarded(t *testing.T) {
	// Backward movement works even when the current step's guard fails.
	s := State{Step: StepReview}
	s.Back()
	require.Equal(t, StepDocuments, s.Step)
	s.Back()
	require.Equal(t, StepPersonalInfo, s.Step)
	s.Back()
	require.Equal(t, StepPersonalInfo, s.Step)
}

func TestCanAdvance(t *testing.T) {
	s := NewState()
	require.False(t, s.CanAdvance())

	s.PersonalInfo = completeInfo()
	require.True(t, s.CanAdvance())

	s.Step = StepDocuments
	require.False(t, s.CanAdvance())
	s.HasIDCard = true
	s.HasSelfie = true
	require.True(t, s.CanAdvance())

	s.Step = StepReview
	require.False(t, s.CanAdvance())
}
