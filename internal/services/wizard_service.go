package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/ledger"
	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/internal/storage"
	"github.com/trustweave/portal/internal/wizard"
	apperrors "github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/logger"
	"github.com/trustweave/portal/pkg/metrics"
)

// Document slots accepted by the wizard.
const (
	DocumentIDCard = "id_card"
	DocumentSelfie = "selfie"
)

// DraftView is the API representation of wizard progress.
type DraftView struct {
	Step         int                 `json:"step"`
	StepName     string              `json:"stepName"`
	PersonalInfo wizard.PersonalInfo `json:"personalInfo"`
	IDCardName   string              `json:"idCardName,omitempty"`
	SelfieName   string              `json:"selfieName,omitempty"`
	HasIDCard    bool                `json:"hasIdCard"`
	HasSelfie    bool                `json:"hasSelfie"`
	CanAdvance   bool                `json:"canAdvance"`
	Submitting   bool                `json:"submitting"`
}

// SubmissionResult is returned to the client after a successful submission.
type SubmissionResult struct {
	Record  RecordView      `json:"record"`
	Receipt *ledger.Receipt `json:"receipt"`
}

// WizardService drives the three-step verification wizard. Wizard state is
// held server side so progress survives page reloads and failed submissions.
type WizardService struct {
	db      *gorm.DB
	records *RecordService
	store   storage.Store
	anchor  ledger.Ledger
	now     func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// WizardOption customises a WizardService.
type WizardOption func(*WizardService)

// WithWizardClock overrides the time source, used by tests.
func WithWizardClock(now func() time.Time) WizardOption {
	return func(s *WizardService) {
		s.now = now
	}
}

// WithWizardRand overrides the randomness source, used by tests.
func WithWizardRand(src rand.Source) WizardOption {
	return func(s *WizardService) {
		s.rnd = rand.New(src)
	}
}

// NewWizardService constructs a WizardService.
func NewWizardService(db *gorm.DB, records *RecordService, store storage.Store, anchor ledger.Ledger, opts ...WizardOption) (*WizardService, error) {
	if db == nil {
		return nil, errors.New("wizard service: db is required")
	}
	if records == nil {
		return nil, errors.New("wizard service: record service is required")
	}
	if store == nil {
		return nil, errors.New("wizard service: document store is required")
	}
	if anchor == nil {
		return nil, errors.New("wizard service: ledger is required")
	}

	s := &WizardService{
		db:      db,
		records: records,
		store:   store,
		anchor:  anchor,
		now:     time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Draft loads the user's draft, creating a fresh one at step one if needed.
func (s *WizardService) Draft(ctx context.Context, userID string) (*DraftView, error) {
	draft, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(draft), nil
}

// SavePersonalInfo stores the step-one fields. Values are saved as entered;
// completeness is only enforced when advancing.
func (s *WizardService) SavePersonalInfo(ctx context.Context, userID string, info wizard.PersonalInfo) (*DraftView, error) {
	draft, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("wizard service: marshal personal info: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(draft).Update("personal_info", payload).Error; err != nil {
		return nil, fmt.Errorf("wizard service: save personal info: %w", err)
	}
	draft.PersonalInfo = payload

	return s.view(draft), nil
}

// AttachDocument stores an uploaded document in the given slot, replacing any
// previous upload for that slot.
func (s *WizardService) AttachDocument(ctx context.Context, userID, slot string, up storage.Upload) (*DraftView, error) {
	if slot != DocumentIDCard && slot != DocumentSelfie {
		return nil, apperrors.NewBadRequest("document type must be id_card or selfie")
	}

	draft, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	up.OwnerID = userID
	path, err := s.store.Save(ctx, up)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType),
			errors.Is(err, storage.ErrFileTooLarge),
			errors.Is(err, storage.ErrEmptyFile):
			return nil, apperrors.ErrDocumentInvalid.WithInternal(err)
		default:
			return nil, fmt.Errorf("wizard service: store document: %w", err)
		}
	}

	var previous string
	updates := map[string]any{}
	switch slot {
	case DocumentIDCard:
		previous = draft.IDCardPath
		updates["id_card_path"] = path
		updates["id_card_name"] = up.Filename
		draft.IDCardPath = path
		draft.IDCardName = up.Filename
	case DocumentSelfie:
		previous = draft.SelfiePath
		updates["selfie_path"] = path
		updates["selfie_name"] = up.Filename
		draft.SelfiePath = path
		draft.SelfieName = up.Filename
	}

	if err := s.db.WithContext(ctx).Model(draft).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("wizard service: save document: %w", err)
	}

	if previous != "" && previous != path {
		if err := s.store.Remove(ctx, previous); err != nil {
			logger.Warn("wizard: remove replaced document failed",
				zap.String("path", previous), zap.Error(err))
		}
	}

	return s.view(draft), nil
}

// Advance moves the wizard forward after validating the current step's guard.
func (s *WizardService) Advance(ctx context.Context, userID string) (*DraftView, error) {
	draft, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := s.stateOf(draft)
	if err := state.Advance(); err != nil {
		return nil, apperrors.ErrWizardStepBlocked.WithInternal(err)
	}

	if err := s.db.WithContext(ctx).Model(draft).Update("step", int(state.Step)).Error; err != nil {
		return nil, fmt.Errorf("wizard service: advance: %w", err)
	}
	draft.Step = int(state.Step)

	return s.view(draft), nil
}

// Back moves the wizard one step toward the start. Going back never loses data
// and is never guarded.
func (s *WizardService) Back(ctx context.Context, userID string) (*DraftView, error) {
	draft, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := s.stateOf(draft)
	state.Back()

	if int(state.Step) != draft.Step {
		if err := s.db.WithContext(ctx).Model(draft).Update("step", int(state.Step)).Error; err != nil {
			return nil, fmt.Errorf("wizard service: back: %w", err)
		}
		draft.Step = int(state.Step)
	}

	return s.view(draft), nil
}

// Submit finalises the wizard: it fingerprints the documents, anchors the
// submission on the ledger, and persists the resulting record. The draft is
// only cleared on success so a failed submission loses nothing.
func (s *WizardService) Submit(ctx context.Context, user *models.User) (*SubmissionResult, error) {
	if user == nil || user.ID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	draft, err := s.loadOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	state := s.stateOf(draft)
	if state.Step != wizard.StepReview || !state.PersonalInfo.Complete() || !state.HasIDCard || !state.HasSelfie {
		return nil, apperrors.ErrWizardStepBlocked
	}

	// Claim the in-flight flag atomically so a double click cannot submit twice.
	claim := s.db.WithContext(ctx).
		Model(&models.WizardDraft{}).
		Where("id = ? AND submitting = ?", draft.ID, false).
		Update("submitting", true)
	if claim.Error != nil {
		return nil, fmt.Errorf("wizard service: claim submission: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil, apperrors.ErrSubmissionInFlight
	}
	draft.Submitting = true

	result, err := s.finalize(ctx, user, draft, state)
	if err != nil {
		metrics.WizardSubmissions.WithLabelValues("failure").Inc()
		if clearErr := s.db.WithContext(ctx).
			Model(&models.WizardDraft{}).
			Where("id = ?", draft.ID).
			Update("submitting", false).Error; clearErr != nil {
			logger.Error("wizard: clear submitting flag failed", zap.Error(clearErr))
		}
		return nil, err
	}

	metrics.WizardSubmissions.WithLabelValues("success").Inc()
	return result, nil
}

func (s *WizardService) finalize(ctx context.Context, user *models.User, draft *models.WizardDraft, state wizard.State) (*SubmissionResult, error) {
	documentHash := s.fingerprint(DocumentIDCard, draft.IDCardName) + "_" + s.fingerprint(DocumentSelfie, draft.SelfieName)
	walletAddress := s.randomHex("0x", 40, false)

	receipt, err := s.anchor.SubmitVerification(ctx, documentHash, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("wizard service: anchor submission: %w", err)
	}

	blob, err := json.Marshal(documentBlob{
		PersonalInfo: &state.PersonalInfo,
		IDCardPath:   draft.IDCardPath,
		SelfiePath:   draft.SelfiePath,
	})
	if err != nil {
		return nil, fmt.Errorf("wizard service: marshal document blob: %w", err)
	}

	submitter, err := json.Marshal(SubmitterInfo{
		FullName:    strings.TrimSpace(state.PersonalInfo.FullName),
		Email:       user.Email,
		DateOfBirth: strings.TrimSpace(state.PersonalInfo.DateOfBirth),
		Nationality: strings.TrimSpace(state.PersonalInfo.Nationality),
		Address:     strings.TrimSpace(state.PersonalInfo.Address),
		IDCardPath:  draft.IDCardPath,
		SelfiePath:  draft.SelfiePath,
	})
	if err != nil {
		return nil, fmt.Errorf("wizard service: marshal submitter info: %w", err)
	}

	record := &models.VerificationRecord{
		UserID:        user.ID,
		Status:        receipt.Status,
		DocumentHash:  documentHash,
		DocumentPath:  string(blob),
		WalletAddress: walletAddress,
		Signature:     s.randomHex("0x", 130, false),
		SubmitterInfo: submitter,
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}

	// Best effort profile sync; a stale name never blocks a submission.
	if fullName := strings.TrimSpace(state.PersonalInfo.FullName); fullName != "" && fullName != user.FullName {
		if err := s.db.WithContext(ctx).Model(user).Update("full_name", fullName).Error; err != nil {
			logger.Warn("wizard: profile sync failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.WizardDraft{}, "id = ?", draft.ID).Error; err != nil {
		logger.Warn("wizard: clear draft failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	record.User = user
	return &SubmissionResult{Record: viewOf(record), Receipt: receipt}, nil
}

// fingerprint produces the per-document hash segment: the slot name, the
// submission time in milliseconds, and a random salt.
func (s *WizardService) fingerprint(slot, filename string) string {
	prefix := "id"
	if slot == DocumentSelfie {
		prefix = "selfie"
	}
	s.mu.Lock()
	salt := s.rnd.Intn(1_000_000_000)
	s.mu.Unlock()
	return fmt.Sprintf("%s_%d_%d", prefix, s.now().UnixMilli(), salt)
}

func (s *WizardService) randomHex(prefix string, nibbles int, upper bool) string {
	const lower = "0123456789abcdef"
	const uppercase = "0123456789ABCDEF"
	alphabet := lower
	if upper {
		alphabet = uppercase
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 0, len(prefix)+nibbles)
	buf = append(buf, prefix...)
	for i := 0; i < nibbles; i++ {
		buf = append(buf, alphabet[s.rnd.Intn(len(alphabet))])
	}
	return string(buf)
}

func (s *WizardService) loadOrCreate(ctx context.Context, userID string) (*models.WizardDraft, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrUnauthorized
	}

	var draft models.WizardDraft
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&draft).Error
	if err == nil {
		return &draft, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("wizard service: load draft: %w", err)
	}

	draft = models.WizardDraft{UserID: userID, Step: int(wizard.StepPersonalInfo)}
	if err := s.db.WithContext(ctx).Create(&draft).Error; err != nil {
		return nil, fmt.Errorf("wizard service: create draft: %w", err)
	}
	return &draft, nil
}

func (s *WizardService) stateOf(draft *models.WizardDraft) wizard.State {
	state := wizard.State{
		Step:      wizard.Step(draft.Step),
		HasIDCard: draft.IDCardPath != "",
		HasSelfie: draft.SelfiePath != "",
	}
	if !state.Step.Valid() {
		state.Step = wizard.StepPersonalInfo
	}
	if len(draft.PersonalInfo) > 0 {
		// Drafts written by older builds may hold malformed JSON; treat it as empty.
		_ = json.Unmarshal(draft.PersonalInfo, &state.PersonalInfo)
	}
	return state
}

func (s *WizardService) view(draft *models.WizardDraft) *DraftView {
	state := s.stateOf(draft)
	return &DraftView{
		Step:         int(state.Step),
		StepName:     state.Step.String(),
		PersonalInfo: state.PersonalInfo,
		IDCardName:   draft.IDCardName,
		SelfieName:   draft.SelfieName,
		HasIDCard:    state.HasIDCard,
		HasSelfie:    state.HasSelfie,
		CanAdvance:   state.CanAdvance(),
		Submitting:   draft.Submitting,
	}
}

// PurgeStaleDrafts removes drafts untouched for longer than ttl.
func (s *WizardService) PurgeStaleDrafts(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := s.now().Add(-ttl)
	result := s.db.WithContext(ctx).
		Where("updated_at < ? AND submitting = ?", cutoff, false).
		Delete(&models.WizardDraft{})
	if result.Error != nil {
		return 0, fmt.Errorf("wizard service: purge drafts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
