package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/database/testutil"
	"github.com/trustweave/portal/internal/models"
	apperrors "github.com/trustweave/portal/pkg/errors"
)

func newLocalFixture(t *testing.T, clock func() time.Time) (*gorm.DB, *LocalProvider) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	provider, err := NewLocalProvider(db, LocalConfig{
		LockoutThreshold: 3,
		LockoutDuration:  15 * time.Minute,
		Clock:            clock,
	})
	require.NoError(t, err)

	return db, provider
}

func TestRegisterAndAuthenticate(t *testing.T) {
	_, provider := newLocalFixture(t, nil)
	ctx := context.Background()

	user, err := provider.Register(ctx, RegisterInput{
		Email:    "  Jane@Example.COM ",
		Password: "correct-horse",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", user.Email)
	require.True(t, user.IsActive)
	require.False(t, user.IsAdmin)
	require.NotEqual(t, "correct-horse", user.Password)

	authed, err := provider.Authenticate(ctx, "jane@example.com", "correct-horse", "127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, user.ID, authed.ID)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	_, provider := newLocalFixture(t, nil)

	_, err := provider.Register(context.Background(), RegisterInput{
		Email:    "jane@example.com",
		Password: "short",
	})
	require.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, provider := newLocalFixture(t, nil)
	ctx := context.Background()

	_, err := provider.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = provider.Register(ctx, RegisterInput{Email: "JANE@example.com", Password: "correct-horse"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "EMAIL_TAKEN", appErr.Code)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	_, provider := newLocalFixture(t, nil)

	_, err := provider.Authenticate(context.Background(), "nobody@example.com", "whatever1", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	db, provider := newLocalFixture(t, nil)
	ctx := context.Background()

	user, err := provider.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	_, err = provider.Authenticate(ctx, "jane@example.com", "correct-horse", "")
	require.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAuthenticateLockoutAfterRepeatedFailures(t *testing.T) {
	current := time.Now()
	_, provider := newLocalFixture(t, func() time.Time { return current })
	ctx := context.Background()

	_, err := provider.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = provider.Authenticate(ctx, "jane@example.com", "wrong-password", "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	// The third failure trips the lockout, so even the right password is refused.
	_, err = provider.Authenticate(ctx, "jane@example.com", "correct-horse", "")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "ACCOUNT_LOCKED", appErr.Code)

	// Once the window passes the account works again.
	current = current.Add(16 * time.Minute)
	_, err = provider.Authenticate(ctx, "jane@example.com", "correct-horse", "")
	require.NoError(t, err)
}

func TestAuthenticateSuccessResetsFailureCount(t *testing.T) {
	db, provider := newLocalFixture(t, nil)
	ctx := context.Background()

	user, err := provider.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = provider.Authenticate(ctx, "jane@example.com", "wrong-password", "")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = provider.Authenticate(ctx, "jane@example.com", "correct-horse", "10.0.0.1")
	require.NoError(t, err)

	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.Zero(t, reloaded.FailedAttempts)
	require.Nil(t, reloaded.LockedUntil)
	require.Equal(t, "10.0.0.1", reloaded.LastLoginIP)
}
