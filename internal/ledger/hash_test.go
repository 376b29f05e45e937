package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trustweave/portal/internal/status"
)

func TestFallbackStatusKnownValues(t *testing.T) {
	cases := []struct {
		email string
		want  status.Status
	}{
		{"a@b.com", status.Pending},
		{"x@y.com", status.Verified},
		{"admin@example.com", status.Rejected},
		{"jane.doe@example.com", status.Pending},
		{"someone@portal.dev", status.Rejected},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, FallbackStatus(tc.email), "email %q", tc.email)
	}
}

func TestFallbackStatusEmptyEmailIsRejected(t *testing.T) {
	require.Equal(t, status.Rejected, FallbackStatus(""))
}

func TestFallbackStatusIsDeterministic(t *testing.T) {
	first := FallbackStatus("x@y.com")
	for i := 0; i < 100; i++ {
		require.Equal(t, first, FallbackStatus("x@y.com"))
	}
}

func TestFallbackStatusAlwaysValid(t *testing.T) {
	emails := []string{
		"short@a.io",
		"very.long.address+tag@subdomain.example.co.uk",
		"UPPER@CASE.COM",
		"unicode-ünïcødé@example.com",
		"a",
	}
	for _, email := range emails {
		require.True(t, FallbackStatus(email).Valid(), "email %q", email)
	}
}
