package ledger

import (
	"strconv"
	"unicode/utf16"

	"github.com/trustweave/portal/internal/status"
)

// FallbackStatus derives a deterministic status from a submitter email.
// The email is folded into a signed 32-bit rolling hash over its UTF-16 code
// units, the absolute value is rendered as lowercase hex, and the first eight
// hex digits are bucketed modulo three. An empty email is always rejected.
func FallbackStatus(email string) status.Status {
	if email == "" {
		return status.Rejected
	}

	var h int32
	for _, unit := range utf16.Encode([]rune(email)) {
		h = h<<5 - h + int32(unit)
	}

	abs := int64(h)
	if abs < 0 {
		abs = -abs
	}

	hex := strconv.FormatInt(abs, 16)
	if len(hex) > 8 {
		hex = hex[:8]
	}

	bucket, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return status.Rejected
	}

	switch bucket % 3 {
	case 0:
		return status.Verified
	case 1:
		return status.Pending
	default:
		return status.Rejected
	}
}
