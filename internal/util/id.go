package util

import (
	"crypto/rand"
	"encoding/hex"
)

// IDLength is the length of ids produced by NewID.
const IDLength = 24

// NewID returns a 24-character lowercase hex id, the same shape as a
// document-store object id.
func NewID() string {
	b := make([]byte, IDLength/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// IsValidID reports whether id has the shape produced by NewID.
// Upper-case hex is accepted.
func IsValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
