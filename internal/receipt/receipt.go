package receipt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is a scanned receipt after OCR extraction, normalized for matching.
// Records are immutable once created; the pipeline never mutates them.
type Record struct {
	ID         string
	Vendor     string // normalized vendor name
	Date       time.Time
	Amount     int64  // minor units, signed (expenses negative)
	FileDigest string // hex sha256 of the source file content
	OCRMeta    json.RawMessage
}

// Fingerprint identifies a receipt's processed identity. At most one
// successful apply may ever happen per fingerprint.
type Fingerprint string

// NewFingerprint derives the fingerprint from the fields that define a
// receipt's identity. The same receipt always hashes to the same value.
func NewFingerprint(r Record) Fingerprint {
	base := fmt.Sprintf("%s|%s|%d|%s",
		strings.ToUpper(strings.TrimSpace(r.Vendor)),
		r.Date.Format(time.DateOnly),
		r.Amount,
		r.FileDigest,
	)

	sum := sha256.Sum256([]byte(base))

	return Fingerprint(hex.EncodeToString(sum[:]))
}

// DigestBytes hashes raw file content into the digest format used by
// Record.FileDigest.
func DigestBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
