package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/database/testutil"
	"github.com/trustweave/portal/internal/ledger"
	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/status"
	"github.com/trustweave/portal/internal/storage"
	"github.com/trustweave/portal/internal/wizard"
	apperrors "github.com/trustweave/portal/pkg/errors"
)

type wizardFixture struct {
	db      *gorm.DB
	svc     *WizardService
	records *RecordService
	user    *models.User
}

func newWizardFixture(t *testing.T, anchor ledger.Ledger) *wizardFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	records, err := NewRecordService(db, audit, nil)
	require.NoError(t, err)

	store, err := storage.NewLocalStore(t.TempDir(), 5<<20, []string{"image/jpeg", "image/png", "application/pdf"})
	require.NoError(t, err)

	if anchor == nil {
		anchor = ledger.NewSimulated(ledger.SimulatedConfig{
			ValidityRate: 1,
			Issuer:       "TrustWeave Identity Authority",
		}, records)
	}

	svc, err := NewWizardService(db, records, store, anchor)
	require.NoError(t, err)

	user := &models.User{Email: "jane@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	return &wizardFixture{db: db, svc: svc, records: records, user: user}
}

func (f *wizardFixture) uploadDocument(t *testing.T, slot, filename string) *DraftView {
	t.Helper()
	content := strings.Repeat("a", 128)
	view, err := f.svc.AttachDocument(context.Background(), f.user.ID, slot, storage.Upload{
		Filename:    filename,
		ContentType: "image/png",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	})
	require.NoError(t, err)
	return view
}

func janePersonalInfo() wizard.PersonalInfo {
	return wizard.PersonalInfo{
		FullName:    "Jane Doe",
		DateOfBirth: "1990-04-12",
		Nationality: "Portuguese",
		Address:     "1 Main St",
	}
}

func TestDraftStartsAtStepOne(t *testing.T) {
	f := newWizardFixture(t, nil)

	view, err := f.svc.Draft(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Step)
	require.Equal(t, "personal_info", view.StepName)
	require.False(t, view.CanAdvance)
}

func TestAdvanceGuardsOverHTTPState(t *testing.T) {
	f := newWizardFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Advance(ctx, f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrWizardStepBlocked)

	_, err = f.svc.SavePersonalInfo(ctx, f.user.ID, janePersonalInfo())
	require.NoError(t, err)

	view, err := f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, view.Step)

	// Step two requires both documents.
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrWizardStepBlocked)

	f.uploadDocument(t, DocumentIDCard, "passport.png")
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.ErrorIs(t, err, apperrors.ErrWizardStepBlocked)

	f.uploadDocument(t, DocumentSelfie, "selfie.png")
	view, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Step)
}

func TestBackPreservesData(t *testing.T) {
	f := newWizardFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SavePersonalInfo(ctx, f.user.ID, janePersonalInfo())
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)

	view, err := f.svc.Back(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Step)
	require.Equal(t, "Jane Doe", view.PersonalInfo.FullName)

	// Going back below the first step is a no-op.
	view, err = f.svc.Back(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, view.Step)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	f := newWizardFixture(t, nil)

	_, err := f.svc.AttachDocument(context.Background(), f.user.ID, DocumentIDCard, storage.Upload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        10,
		Content:     strings.NewReader("0123456789"),
	})
	require.ErrorIs(t, err, apperrors.ErrDocumentInvalid)
}

func TestUploadRejectsUnknownSlot(t *testing.T) {
	f := newWizardFixture(t, nil)

	_, err := f.svc.AttachDocument(context.Background(), f.user.ID, "portrait", storage.Upload{
		Filename:    "a.png",
		ContentType: "image/png",
		Size:        1,
		Content:     strings.NewReader("a"),
	})
	require.Error(t, err)
}

func TestSubmitFullWizardFlow(t *testing.T) {
	f := newWizardFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SavePersonalInfo(ctx, f.user.ID, janePersonalInfo())
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)

	f.uploadDocument(t, DocumentIDCard, "passport.png")
	f.uploadDocument(t, DocumentSelfie, "selfie.png")
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)

	result, err := f.svc.Submit(ctx, f.user)
	require.NoError(t, err)

	require.Regexp(t, regexp.MustCompile(`^id_\d+_\d+_selfie_\d+_\d+$`), result.Record.DocumentHash)
	require.Equal(t, status.Pending, result.Record.Status)
	require.Equal(t, "Jane Doe", result.Record.Submitter.FullName)
	require.Equal(t, "jane@example.com", result.Record.Submitter.Email)
	require.Equal(t, "1 Main St", result.Record.Submitter.Address)
	require.NotNil(t, result.Receipt)
	require.True(t, result.Receipt.Success)
	require.Regexp(t, regexp.MustCompile(`^0x[0-9A-F]{64}$`), result.Receipt.TxHash)

	// The stored record carries both the structured and the legacy payloads.
	stored, err := f.records.Get(ctx, result.Record.ID)
	require.NoError(t, err)
	require.Contains(t, stored.DocumentPath, `"fullName":"Jane Doe"`)
	require.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{40}$`), stored.WalletAddress)
	require.Regexp(t, regexp.MustCompile(`^0x[0-9a-f]{130}$`), stored.Signature)

	// The draft is cleared so the next visit starts a fresh wizard.
	var draftCount int64
	require.NoError(t, f.db.Model(&models.WizardDraft{}).Count(&draftCount).Error)
	require.EqualValues(t, 0, draftCount)

	// The applicant's profile picked up the submitted name.
	var reloaded models.User
	require.NoError(t, f.db.Take(&reloaded, "id = ?", f.user.ID).Error)
	require.Equal(t, "Jane Doe", reloaded.FullName)
}

func TestSubmitBlockedBeforeReview(t *testing.T) {
	f := newWizardFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), f.user)
	require.ErrorIs(t, err, apperrors.ErrWizardStepBlocked)
}

func TestSubmitRejectsDuplicateInFlight(t *testing.T) {
	f := newWizardFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SavePersonalInfo(ctx, f.user.ID, janePersonalInfo())
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)
	f.uploadDocument(t, DocumentIDCard, "passport.png")
	f.uploadDocument(t, DocumentSelfie, "selfie.png")
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)

	// Simulate an outstanding submission holding the in-flight flag.
	require.NoError(t, f.db.Model(&models.WizardDraft{}).
		Where("user_id = ?", f.user.ID).
		Update("submitting", true).Error)

	_, err = f.svc.Submit(ctx, f.user)
	require.ErrorIs(t, err, apperrors.ErrSubmissionInFlight)
}

type failingLedger struct{}

func (failingLedger) SubmitVerification(ctx context.Context, documentHash, walletAddress string) (*ledger.Receipt, error) {
	return nil, errors.New("ledger unavailable")
}

func (failingLedger) VerifyRecord(ctx context.Context, recordID string) (*ledger.Attestation, error) {
	return nil, errors.New("ledger unavailable")
}

func (failingLedger) VerificationStatus(ctx context.Context, email string) (status.Status, error) {
	return "", errors.New("ledger unavailable")
}

func TestFailedSubmissionKeepsDraft(t *testing.T) {
	f := newWizardFixture(t, failingLedger{})
	ctx := context.Background()

	_, err := f.svc.SavePersonalInfo(ctx, f.user.ID, janePersonalInfo())
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)
	f.uploadDocument(t, DocumentIDCard, "passport.png")
	f.uploadDocument(t, DocumentSelfie, "selfie.png")
	_, err = f.svc.Advance(ctx, f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.user)
	require.Error(t, err)

	// Nothing was persisted and the draft survived with its data intact,
	// ready for a retry.
	var recordCount int64
	require.NoError(t, f.db.Model(&models.VerificationRecord{}).Count(&recordCount).Error)
	require.EqualValues(t, 0, recordCount)

	view, err := f.svc.Draft(ctx, f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, view.Step)
	require.Equal(t, "Jane Doe", view.PersonalInfo.FullName)
	require.True(t, view.HasIDCard)
	require.True(t, view.HasSelfie)
	require.False(t, view.Submitting)
}
