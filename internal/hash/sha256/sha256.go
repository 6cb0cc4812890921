// Package sha256 digests report payloads so written files can be matched
// against log lines.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements asn.Hasher. report.Writer logs its digest of every file
// it writes, so an archived report can be matched to the run that made it.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lower-case hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
