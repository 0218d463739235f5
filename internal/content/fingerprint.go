package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is a SHA-256 digest of an artifact's bytes. It is only ever
// compared for equality.
type Fingerprint [sha256.Size]byte

func Sum(data []byte) Fingerprint { return sha256.Sum256(data) }

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Short returns the first 12 hex characters, enough for log lines.
func (f Fingerprint) Short() string { return f.String()[:12] }

func (f Fingerprint) IsZero() bool { return f == Fingerprint{} }
