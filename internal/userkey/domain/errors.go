package domain

import (
	"github.com/nemory/userkeys/internal/errors"
)

// User key error definitions.
var (
	// ErrUserKeyNotFound indicates no key has been provisioned for the user yet.
	ErrUserKeyNotFound = errors.Wrap(errors.ErrNotFound, "user key not found")

	// ErrConcurrentProvisioning indicates another writer inserted the user's key first.
	ErrConcurrentProvisioning = errors.Wrap(errors.ErrConflict, "user key provisioned concurrently")

	// ErrKeyVersionConflict indicates the key was rotated by someone else in the meantime.
	ErrKeyVersionConflict = errors.Wrap(errors.ErrConflict, "user key version changed concurrently")

	// ErrInvalidUserID indicates a non-positive user id.
	ErrInvalidUserID = errors.Wrap(errors.ErrInvalidInput, "invalid user id")
)
