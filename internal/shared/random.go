// Package shared provides small helpers used by several packages.
package shared

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long. It fails only if the system RNG fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewShareCode returns the code embedded in a QR code to grant read access
// to a shared record, e.g. "VX-9F2D4C3A5E6B".
func NewShareCode() (string, error) {
	s, err := MakeRandHexString(6)
	if err != nil {
		return "", err
	}
	return "VX-" + strings.ToUpper(s), nil
}
