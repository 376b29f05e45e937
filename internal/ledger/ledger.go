package ledger

import (
	"context"
	"time"

	"github.com/trustweave/portal/internal/status"
)

// Receipt is returned when a verification submission is anchored on the ledger.
// Success reports whether the anchoring was accepted; Status is the initial
// review state of the anchored record.
type Receipt struct {
	Success     bool          `json:"success"`
	TxHash      string        `json:"txHash"`
	BlockNumber int64         `json:"blockNumber"`
	Status      status.Status `json:"status"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Attestation is the result of verifying an anchored record.
type Attestation struct {
	Valid      bool      `json:"valid"`
	Issuer     string    `json:"issuer"`
	VerifiedAt time.Time `json:"verifiedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Ledger anchors verification submissions and answers status queries.
// Implementations must be safe for concurrent use.
type Ledger interface {
	// SubmitVerification anchors a document hash for the submitter's wallet
	// address and returns the transaction receipt.
	SubmitVerification(ctx context.Context, documentHash, walletAddress string) (*Receipt, error)

	// VerifyRecord checks an anchored record and returns its attestation.
	VerifyRecord(ctx context.Context, recordID string) (*Attestation, error)

	// VerificationStatus resolves the current status for a submitter email.
	// When no stored record exists the status is derived deterministically
	// from the email so repeated queries always agree.
	VerificationStatus(ctx context.Context, email string) (status.Status, error)
}

// RecordFinder looks up the most recent stored status for an email.
// A nil result with no error means no record exists for that submitter.
type RecordFinder interface {
	LatestStatusByEmail(ctx context.Context, email string) (*status.Status, error)
}
