package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNormalises(t *testing.T) {
	require.Equal(t, Verified, Parse("verified"))
	require.Equal(t, Verified, Parse(" VERIFIED "))
	require.Equal(t, Rejected, Parse("rejected"))
	require.Equal(t, Pending, Parse("pending"))
	require.Equal(t, Pending, Parse("unknown"))
	require.Equal(t, Pending, Parse(""))
}

func TestTerminal(t *testing.T) {
	require.True(t, Verified.Terminal())
	require.True(t, Rejected.Terminal())
	require.False(t, Pending.Terminal())
}

func TestForDisplay(t *testing.T) {
	verified := ForDisplay(Verified)
	require.Equal(t, "Verified", verified.Label)
	require.Equal(t, "green-100", verified.Background)
	require.Equal(t, "check-circle", verified.Icon)

	pending := ForDisplay(Pending)
	require.Equal(t, "Pending", pending.Label)
	require.Equal(t, "amber-100", pending.Background)
	require.Equal(t, "clock", pending.Icon)

	rejected := ForDisplay(Rejected)
	require.Equal(t, "Rejected", rejected.Label)
	require.Equal(t, "red-100", rejected.Background)
	require.Equal(t, "alert-triangle", rejected.Icon)
}

func TestForDisplayUnknownStatusFallsBackToRejected(t *testing.T) {
	// A corrupt status must still render as a safe badge.
	display := ForDisplay(Status("garbage"))
	require.Equal(t, "Rejected", display.Label)
	require.Equal(t, "red-100", display.Background)
	require.Equal(t, "red-700", display.Text)
}
