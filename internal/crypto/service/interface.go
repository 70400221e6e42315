// Package service provides the cryptographic building blocks of envelope encryption:
// AEAD ciphers for field encryption and KMS clients that generate and unwrap
// per-user data encryption keys.
package service

import (
	"context"
	"io"

	cryptoDomain "github.com/nemory/userkeys/internal/crypto/domain"
)

// SealedBox is the output of a single AEAD seal operation.
type SealedBox struct {
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Seal encrypts plaintext under a fresh random nonce and authenticates aad.
	Seal(plaintext, aad []byte) (*SealedBox, error)

	// Open verifies and decrypts a box sealed with the same key and aad.
	Open(nonce, ciphertext, tag, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KMSClient is the key-service capability used to generate and unwrap data keys.
//
// The encryption context is cryptographically bound to the wrapped key: unwrapping
// with a different context fails with ErrContextMismatch. Implementations keep no
// local key state and never retry.
type KMSClient interface {
	// GenerateDataKey returns a new 32-byte data key and its wrapped form.
	// Fails with ErrKeyServiceUnavailable or ErrKeyServicePermissionDenied.
	GenerateDataKey(
		ctx context.Context,
		masterKeyID string,
		encCtx cryptoDomain.EncryptionContext,
	) (*cryptoDomain.DataKey, error)

	// UnwrapDataKey returns the plaintext of a wrapped data key. The caller owns the
	// returned slice and must zero it after use.
	// Fails with ErrKeyServiceUnavailable, ErrKeyServicePermissionDenied or ErrContextMismatch.
	UnwrapDataKey(
		ctx context.Context,
		wrappedKey []byte,
		encCtx cryptoDomain.EncryptionContext,
		masterKeyID string,
	) ([]byte, error)
}

// KMSKeeper is the subset of *secrets.Keeper used by KeeperKMSClient.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	io.Closer
}
