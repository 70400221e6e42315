package domain

import (
	"github.com/nemory/userkeys/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so the
// HTTP layer can map them by category. None of them are retried internally.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a data key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrKeyServiceUnavailable indicates the KMS could not be reached or failed internally.
	//
	// HTTP Status: 503 Service Unavailable
	ErrKeyServiceUnavailable = errors.Wrap(errors.ErrUnavailable, "key service unavailable")

	// ErrKeyServicePermissionDenied indicates the KMS refused the call: missing grants,
	// a disabled master key or an unknown key id.
	//
	// HTTP Status: 403 Forbidden
	ErrKeyServicePermissionDenied = errors.Wrap(errors.ErrForbidden, "key service permission denied")

	// ErrContextMismatch indicates the KMS rejected the encryption context supplied on
	// unwrap as not matching the one the key was wrapped under.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrContextMismatch = errors.Wrap(errors.ErrInvalidInput, "encryption context mismatch")

	// ErrUnsupportedFormat indicates an envelope with an unknown format version or algorithm.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrUnsupportedFormat = errors.Wrap(errors.ErrInvalidInput, "unsupported envelope format")

	// ErrDecryptionFailed indicates authenticated decryption failed for every AAD candidate.
	//
	// The cause (wrong key, tampered ciphertext, wrong AAD, wrong owner) is never
	// disclosed to callers.
	//
	// HTTP Status: 422 Unprocessable Entity ("content_unavailable")
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
