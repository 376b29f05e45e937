package ledger

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trustweave/portal/internal/status"
	"github.com/trustweave/portal/pkg/logger"
	"github.com/trustweave/portal/pkg/metrics"
)

const (
	txHashNibbles  = 64
	blockNumberMin = 10_000_000
	blockNumberMax = 12_000_000
	validityPeriod = 365 * 24 * time.Hour
)

const hexUpper = "0123456789ABCDEF"

// SimulatedConfig tunes the simulated ledger.
type SimulatedConfig struct {
	SubmitDelay  time.Duration
	VerifyDelay  time.Duration
	StatusDelay  time.Duration
	ValidityRate float64
	Issuer       string
}

// Simulated is an in-process ledger that mimics the latency and shape of a
// real blockchain anchor without any network dependency.
type Simulated struct {
	cfg    SimulatedConfig
	finder RecordFinder
	now    func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// SimulatedOption customises a Simulated ledger.
type SimulatedOption func(*Simulated)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *Simulated) {
		s.now = now
	}
}

// WithRandSource overrides the randomness source, used by tests.
func WithRandSource(src rand.Source) SimulatedOption {
	return func(s *Simulated) {
		s.rnd = rand.New(src)
	}
}

// NewSimulated builds a simulated ledger backed by the given record finder.
func NewSimulated(cfg SimulatedConfig, finder RecordFinder, opts ...SimulatedOption) *Simulated {
	s := &Simulated{
		cfg:    cfg,
		finder: finder,
		now:    time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitVerification anchors a document hash after the configured network delay.
// The returned receipt always starts in the pending state.
func (s *Simulated) SubmitVerification(ctx context.Context, documentHash, walletAddress string) (*Receipt, error) {
	if err := s.wait(ctx, s.cfg.SubmitDelay); err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues("submit").Inc()

	return &Receipt{
		Success:     true,
		TxHash:      s.newTxHash(),
		BlockNumber: s.newBlockNumber(),
		Status:      status.Pending,
		Timestamp:   s.now(),
	}, nil
}

// VerifyRecord checks an anchored record. The simulation reports the record
// valid with the configured probability and attaches a one-year expiry.
func (s *Simulated) VerifyRecord(ctx context.Context, recordID string) (*Attestation, error) {
	if err := s.wait(ctx, s.cfg.VerifyDelay); err != nil {
		return nil, err
	}

	metrics.LedgerTransactions.WithLabelValues("verify").Inc()

	now := s.now()
	return &Attestation{
		Valid:      s.chance(s.cfg.ValidityRate),
		Issuer:     s.cfg.Issuer,
		VerifiedAt: now,
		ExpiresAt:  now.Add(validityPeriod),
	}, nil
}

// VerificationStatus resolves the status for an email, preferring a stored
// record and falling back to the deterministic email hash. Store failures
// degrade to the fallback; a status lookup never raises past a cancelled
// context.
func (s *Simulated) VerificationStatus(ctx context.Context, email string) (status.Status, error) {
	if err := s.wait(ctx, s.cfg.StatusDelay); err != nil {
		return "", err
	}

	metrics.LedgerTransactions.WithLabelValues("status").Inc()

	if s.finder != nil {
		stored, err := s.finder.LatestStatusByEmail(ctx, email)
		if err != nil {
			logger.Warn("ledger: status lookup degraded to fallback", zap.Error(err))
		} else if stored != nil {
			return *stored, nil
		}
	}

	return FallbackStatus(email), nil
}

func (s *Simulated) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Simulated) newTxHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, 2+txHashNibbles)
	buf[0], buf[1] = '0', 'x'
	for i := 2; i < len(buf); i++ {
		buf[i] = hexUpper[s.rnd.Intn(len(hexUpper))]
	}
	return string(buf)
}

func (s *Simulated) newBlockNumber() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return blockNumberMin + s.rnd.Int63n(blockNumberMax-blockNumberMin)
}

func (s *Simulated) chance(rate float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < rate
}
