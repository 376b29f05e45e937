package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/database/testutil"
	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/services"
	"github.com/trustweave/portal/internal/status"
)

func newDashboardFixture(t *testing.T) (*gorm.DB, *services.RecordService, *Reconciler, *models.User) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)

	records, err := services.NewRecordService(db, audit, nil)
	require.NoError(t, err)

	reconciler, err := NewReconciler(records, time.Minute)
	require.NoError(t, err)

	user := &models.User{Email: "jane@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	return db, records, reconciler, user
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	_, records, reconciler, user := newDashboardFixture(t)
	ctx := context.Background()

	require.Empty(t, reconciler.Snapshot().Records)

	record := &models.VerificationRecord{UserID: user.ID, DocumentHash: "h"}
	require.NoError(t, records.Create(ctx, record))

	snapshot, err := reconciler.Refresh(ctx, "manual")
	require.NoError(t, err)
	require.Len(t, snapshot.Records, 1)
	require.Equal(t, record.ID, snapshot.Records[0].ID)
	require.NotZero(t, snapshot.Generation)
}

func TestRefreshGenerationOnlyMovesForward(t *testing.T) {
	_, records, reconciler, user := newDashboardFixture(t)
	ctx := context.Background()

	record := &models.VerificationRecord{UserID: user.ID, DocumentHash: "h"}
	require.NoError(t, records.Create(ctx, record))

	first, err := reconciler.Refresh(ctx, "manual")
	require.NoError(t, err)

	second, err := reconciler.Refresh(ctx, "manual")
	require.NoError(t, err)
	require.Greater(t, second.Generation, first.Generation)

	// The served snapshot always reflects the newest applied refresh.
	require.Equal(t, second.Generation, reconciler.Snapshot().Generation)
}

func TestApplyDecisionPatchesCachedRow(t *testing.T) {
	_, records, reconciler, user := newDashboardFixture(t)
	ctx := context.Background()

	record := &models.VerificationRecord{UserID: user.ID, DocumentHash: "h"}
	require.NoError(t, records.Create(ctx, record))

	_, err := reconciler.Refresh(ctx, "manual")
	require.NoError(t, err)

	updated, err := records.UpdateStatus(ctx, record.ID, status.Verified, services.DecisionMeta{})
	require.NoError(t, err)

	views, err := records.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	reconciler.ApplyDecision(views[0])

	snapshot := reconciler.Snapshot()
	require.Len(t, snapshot.Records, 1)
	require.Equal(t, status.Verified, snapshot.Records[0].Status)
	require.Equal(t, updated.ID, snapshot.Records[0].ID)
}

func TestRunPerformsInitialRefresh(t *testing.T) {
	_, records, reconciler, user := newDashboardFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	record := &models.VerificationRecord{UserID: user.ID, DocumentHash: "h"}
	require.NoError(t, records.Create(ctx, record))

	done := make(chan struct{})
	go func() {
		reconciler.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return len(reconciler.Snapshot().Records) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reconciler did not stop after context cancellation")
	}
}
