// Package domain defines the per-user data encryption key record.
//
// Each user owns exactly one wrapped DEK at a time. The record is created lazily on
// first use and its KeyVersion only moves forward through deliberate rotation.
package domain

import (
	"strconv"
	"time"
)

// InitialKeyVersion is the version assigned to a freshly provisioned key.
const InitialKeyVersion = 1

// UserKey holds a user's DEK as wrapped by the KMS master key.
type UserKey struct {
	// UserID is the owning user.
	UserID int64
	// WrappedDEK is the KMS ciphertext of the user's DEK. Never the plaintext key.
	WrappedDEK []byte
	// KeyVersion identifies which DEK generation WrappedDEK belongs to.
	KeyVersion int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KeyVersionString returns KeyVersion as used in encryption contexts.
func (k *UserKey) KeyVersionString() string {
	return strconv.Itoa(k.KeyVersion)
}

// FormatUserID renders a user id the way it appears in encryption contexts.
func FormatUserID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
