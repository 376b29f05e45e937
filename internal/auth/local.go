package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/pkg/crypto"
	apperrors "github.com/trustweave/portal/pkg/errors"
	"github.com/trustweave/portal/pkg/metrics"
)

// LocalConfig tunes password authentication.
type LocalConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// LocalProvider authenticates users against stored bcrypt password hashes.
type LocalProvider struct {
	db        *gorm.DB
	threshold int
	lockout   time.Duration
	now       func() time.Time
}

// NewLocalProvider builds a password authenticator with account lockout.
func NewLocalProvider(db *gorm.DB, cfg LocalConfig) (*LocalProvider, error) {
	if db == nil {
		return nil, errors.New("local auth: db is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = 5
	}
	lockout := cfg.LockoutDuration
	if lockout <= 0 {
		lockout = 15 * time.Minute
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &LocalProvider{db: db, threshold: threshold, lockout: lockout, now: now}, nil
}

// RegisterInput holds the fields required to create an account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// Register creates a new active, non-admin user account.
func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewBadRequest("password must be at least 8 characters")
	}

	var count int64
	if err := p.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("local auth: check email: %w", err)
	}
	if count > 0 {
		return nil, apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("local auth: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: hash,
		FullName: strings.TrimSpace(input.FullName),
		IsActive: true,
	}
	if err := p.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("local auth: create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies the credentials and enforces the lockout policy.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password, ip string) (*models.User, error) {
	email = normalizeEmail(email)

	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("local auth: find user: %w", err)
	}

	now := p.now()

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrForbidden
	}

	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.New("ACCOUNT_LOCKED", "Account temporarily locked, try again later", http.StatusLocked)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		if err := p.recordFailure(ctx, &user, now); err != nil {
			return nil, err
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	updates := map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   strings.TrimSpace(ip),
	}
	if err := p.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("local auth: record login: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &user, nil
}

func (p *LocalProvider) recordFailure(ctx context.Context, user *models.User, now time.Time) error {
	attempts := user.FailedAttempts + 1
	updates := map[string]any{"failed_attempts": attempts}
	if attempts >= p.threshold {
		updates["locked_until"] = now.Add(p.lockout)
		updates["failed_attempts"] = 0
	}
	if err := p.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("local auth: record failure: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
