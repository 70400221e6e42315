// Package usecase implements lazy provisioning, unwrapping and rotation of per-user
// data encryption keys.
package usecase

import (
	"context"

	userkeyDomain "github.com/nemory/userkeys/internal/userkey/domain"
)

// UserKeyRepository defines the interface for UserKey persistence operations.
// Create must fail with ErrConcurrentProvisioning when a record for the user exists.
// FindByUserIDForUpdate locks the row for the rest of the transaction carried by ctx.
type UserKeyRepository interface {
	Create(ctx context.Context, key *userkeyDomain.UserKey) error
	FindByUserID(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error)
	FindByUserIDForUpdate(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error)
	UpdateWrappedDEK(ctx context.Context, key *userkeyDomain.UserKey, expectedVersion int) error
}

// UserKeyUseCase defines the interface for per-user key management.
type UserKeyUseCase interface {
	// EnsureUserKey returns the user's key record, provisioning one on first use.
	EnsureUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error)
	// GetPlaintextDEK returns the unwrapped DEK for the user's current key version
	// together with the record it was unwrapped from.
	//
	// Security Note: the returned key is single-use. Callers MUST zero it with
	// cryptoDomain.Zero once done and must never cache, log or persist it.
	GetPlaintextDEK(ctx context.Context, userID int64) ([]byte, *userkeyDomain.UserKey, error)
	// GetUserKey returns the user's key record without provisioning.
	GetUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error)
	// RotateUserKey replaces the user's DEK with a fresh one under the next key version.
	// Envelopes written under older versions stay readable through their embedded copy.
	RotateUserKey(ctx context.Context, userID int64) (*userkeyDomain.UserKey, error)
}
